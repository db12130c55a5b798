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

package frame

import (
	"fmt"
)

type FindingKind uint8

const (
	FindingTooShort FindingKind = iota
	FindingChecksumMismatch
	FindingLengthMismatch
)

var findingNames = map[FindingKind]string{
	FindingTooShort:         "too short",
	FindingChecksumMismatch: "checksum mismatch",
	FindingLengthMismatch:   "length mismatch",
}

func (k FindingKind) String() string {
	return findingNames[k]
}

// Finding is a data quality signal attached to the frame it was found in
type Finding struct {
	Kind   FindingKind
	Layer  string
	Detail string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s: %s", f.Layer, f.Kind, f.Detail)
}
