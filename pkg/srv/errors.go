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

package srv

import (
	"fmt"
)

// ErrBadFill returned when the fill byte of a binary image request is not a byte value
type ErrBadFill struct {
	Value string
}

func (e ErrBadFill) Error() string {
	return fmt.Sprintf("Wrong fill value %q. Must be a byte, e.g. 0xff", e.Value)
}

// ErrRangeLength returned when the decoded data of a range does not match its length
type ErrRangeLength struct {
	Start  string
	Length int
	Data   int
}

func (e ErrRangeLength) Error() string {
	return fmt.Sprintf("Range %s declares %d bytes, data holds %d", e.Start, e.Length, e.Data)
}
