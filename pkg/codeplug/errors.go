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

import (
	"fmt"
)

// ErrImageNotFound returned when the store holds no image with this name
type ErrImageNotFound struct {
	Name string
}

func (e ErrImageNotFound) Error() string {
	return fmt.Sprintf("Image not found: %s", e.Name)
}

// ErrImageTooLarge returned when the ranges span more than MaxImageSize bytes
type ErrImageTooLarge struct {
	Size uint64
}

func (e ErrImageTooLarge) Error() string {
	return fmt.Sprintf("Image spans %d bytes, the limit is %d", e.Size, MaxImageSize)
}

// ErrCorruptRecord returned when a stored range can not be decoded
type ErrCorruptRecord struct {
	Name string
	Key  []byte
}

func (e ErrCorruptRecord) Error() string {
	return fmt.Sprintf("Corrupt record in image %s: key %x", e.Name, e.Key)
}
