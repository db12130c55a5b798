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
	"github.com/reveng/go-hycap/pkg/capture"
	"github.com/reveng/go-hycap/pkg/layers"
)

// Kind is the operation kind crossed with the transfer direction
type Kind uint8

const (
	KindOther Kind = iota
	KindReadRequest
	KindReadResponse
	KindWriteRequest
	KindWriteResponse
)

var kindNames = map[Kind]string{
	KindOther:         "other",
	KindReadRequest:   "read-request",
	KindReadResponse:  "read-response",
	KindWriteRequest:  "write-request",
	KindWriteResponse: "write-response",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Classify picks the kind of a frame. Requests travel from host to device in
// the request class, responses from device to host in the response class.
// Every other combination is KindOther.
func Classify(direction capture.Direction, class layers.CommandClass, op layers.Operation) Kind {
	var request bool
	switch {
	case direction == capture.HostToDevice && class == layers.CommandClassRequest:
		request = true
	case direction == capture.DeviceToHost && class == layers.CommandClassResponse:
		request = false
	default:
		return KindOther
	}

	switch op {
	case layers.OperationRead:
		if request {
			return KindReadRequest
		}
		return KindReadResponse
	case layers.OperationWrite:
		if request {
			return KindWriteRequest
		}
		return KindWriteResponse
	}
	return KindOther
}

func (f *Frame) IsReadRequest() bool {
	return f.Kind == KindReadRequest
}

func (f *Frame) IsReadResponse() bool {
	return f.Kind == KindReadResponse
}

func (f *Frame) IsWriteRequest() bool {
	return f.Kind == KindWriteRequest
}

func (f *Frame) IsWriteResponse() bool {
	return f.Kind == KindWriteResponse
}
