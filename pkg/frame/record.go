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

// Body is either Plain or ReadWriteBody
type Body interface {
	body()
}

// Plain is the undecoded payload of the innermost layer that could be decoded
type Plain struct {
	Payload []byte
}

func (Plain) body() {}

type ReadWriteBody struct {
	Operation      layers.Operation
	Address        uint32
	Length         uint16
	Transmitted    uint16
	Checksum       uint16
	ChecksumStatus layers.ChecksumStatus
	Content        []byte
}

func (ReadWriteBody) body() {}

// EnvelopeBody holds the request/response fields
type EnvelopeBody struct {
	Sequence  uint8
	SubFlag   uint8
	Operation layers.Operation
	Reserved  uint8
	Checksum  uint16
	Length    uint16
}

// Record is the uniform view of a decoded frame used by renderers
type Record struct {
	Index          int
	Direction      capture.Direction
	CommandClass   layers.CommandClass
	Flag           uint8
	ResponseCount  uint16
	DeclaredLength uint16
	// Envelope is nil when the request/response envelope did not decode
	Envelope *EnvelopeBody
	Body     Body
	Findings []Finding
}

// Record builds the uniform view. It returns false when not even Layer0 could be decoded.
func (f *Frame) Record() (*Record, bool) {
	if f.Layer0 == nil {
		return nil, false
	}
	r := &Record{
		Index:          f.Index,
		Direction:      f.Direction,
		CommandClass:   f.Layer0.CommandClass,
		Flag:           f.Layer0.Flag,
		ResponseCount:  f.Layer0.ResponseCount,
		DeclaredLength: f.Layer0.Length,
		Findings:       f.Findings,
	}

	rr := f.RequestResponse
	if rr != nil {
		r.Envelope = &EnvelopeBody{
			Sequence:  rr.Sequence,
			SubFlag:   rr.SubFlag,
			Operation: rr.Operation,
			Reserved:  rr.Reserved,
			Checksum:  rr.Checksum,
			Length:    rr.Length,
		}
	}

	switch {
	case f.ReadWrite != nil:
		rw := f.ReadWrite
		r.Body = ReadWriteBody{
			Operation:      rr.Operation,
			Address:        rw.Address,
			Length:         rw.Length,
			Transmitted:    rr.Checksum,
			Checksum:       rw.Checksum,
			ChecksumStatus: rw.ChecksumStatus,
			Content:        rw.Content,
		}
	case rr != nil:
		r.Body = Plain{Payload: rr.LayerPayload()}
	default:
		r.Body = Plain{Payload: f.Layer0.LayerPayload()}
	}
	return r, true
}
