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

package codeplug

// MaxImageSize bounds the span of a flattened image
const MaxImageSize = 64 << 20

// Flatten lays the ranges out in one buffer starting at the lowest address.
// Gaps are filled with fill, later ranges overwrite earlier ones.
func Flatten(ranges []*Range, fill byte) (uint32, []byte, error) {
	if len(ranges) == 0 {
		return 0, []byte{}, nil
	}
	base := uint64(ranges[0].Start)
	end := base
	for _, r := range ranges {
		start := uint64(r.Start)
		if start < base {
			base = start
		}
		if e := start + uint64(len(r.Data)); e > end {
			end = e
		}
	}
	if size := end - base; size > MaxImageSize {
		return 0, nil, ErrImageTooLarge{Size: size}
	}

	image := make([]byte, end-base)
	for i := range image {
		image[i] = fill
	}
	for _, r := range ranges {
		copy(image[uint64(r.Start)-base:], r.Data)
	}
	return uint32(base), image, nil
}

// Size is the number of bytes held by the ranges
func Size(ranges []*Range) int {
	n := 0
	for _, r := range ranges {
		n += len(r.Data)
	}
	return n
}
