/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package layers

const (
	// ChecksumSeed is the initial value of the read/write checksum accumulator
	ChecksumSeed = 0x59fd
	// ChecksumModulus reduces the accumulator. It is 0xffff, not 0x10000, on the wire.
	ChecksumModulus = 0xffff
)

type ChecksumStatus uint8

const (
	ChecksumMatch ChecksumStatus = iota
	ChecksumMismatch
)

func (s ChecksumStatus) String() string {
	if s == ChecksumMatch {
		return "OK"
	}
	return "ERR"
}

// ChecksumAccumulate returns the signed, unreduced checksum of a read/write operation.
// Intermediate values go negative and must not be clamped.
func ChecksumAccumulate(addr uint32, length uint16, content []byte) int {
	acc := ChecksumSeed
	acc -= int(addr & 0xffff)
	acc -= int(addr >> 16)
	acc -= int(length)
	acc -= 1
	for _, b := range content {
		acc -= int(b)
	}
	return acc
}

// ReduceChecksum takes the floored modulo so negative accumulators land in [0, ChecksumModulus)
func ReduceChecksum(acc int) uint16 {
	r := acc % ChecksumModulus
	if r < 0 {
		r += ChecksumModulus
	}
	return uint16(r)
}

// Checksum computes the checksum carried by read/write responses
func Checksum(addr uint32, length uint16, content []byte) uint16 {
	return ReduceChecksum(ChecksumAccumulate(addr, length, content))
}

// RequestChecksum computes the checksum carried by read/write requests.
// Requests are offset by the sequence byte of the enclosing request frame before the reduction.
func RequestChecksum(seq uint8, addr uint32, length uint16, content []byte) uint16 {
	return ReduceChecksum(ChecksumAccumulate(addr, length, content) - int(seq))
}

func VerifyChecksum(expected, computed uint16) ChecksumStatus {
	if expected == computed {
		return ChecksumMatch
	}
	return ChecksumMismatch
}
