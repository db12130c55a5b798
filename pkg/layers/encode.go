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

import (
	"github.com/google/gopacket"
)

const readWriteEndMarker = 0x03

// ReadWriteFrame describes a complete read/write transfer payload
type ReadWriteFrame struct {
	Class     CommandClass
	Sequence  uint8
	Operation Operation
	Address   uint32
	// Length is the requested byte count. Read requests carry no content.
	Length  uint16
	Content []byte
}

// Encode builds the Layer0, request/response and read/write layers with
// consistent lengths and a valid checksum
func (f ReadWriteFrame) Encode() ([]byte, error) {
	rw := &ReadWriteLayer{
		Address: f.Address,
		Length:  f.Length,
		Content: f.Content,
	}
	checksum := Checksum(f.Address, f.Length, f.Content)
	if f.Class == CommandClassResponse {
		rw.Shape = ResponseShape
	} else {
		checksum = RequestChecksum(f.Sequence, f.Address, f.Length, f.Content)
	}

	inner := rw.Shape.HeaderSize() + len(f.Content)
	rr := &RequestResponseLayer{RequestResponseHeader: RequestResponseHeader{
		Sequence:  f.Sequence,
		Operation: f.Operation,
		Checksum:  checksum,
		EndMarker: readWriteEndMarker,
		Length:    uint16(inner),
	}}
	l0 := &Layer0Layer{Layer0Header: Layer0Header{
		CommandClass: f.Class,
		Length:       uint16(Layer0HeaderSize + RequestResponseMinSize + inner),
	}}

	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, l0, rr, rw)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
