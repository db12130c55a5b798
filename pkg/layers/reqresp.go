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
	"encoding/binary"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/reveng/go-hycap/pkg/log"
)

const (
	// RequestResponseLayerNum identifies the layer
	RequestResponseLayerNum = 2102
	// RequestResponseHeaderSize is checksum MSB, sequence, sub flag, operation, reserved and length
	RequestResponseHeaderSize = 7
	// RequestResponseTrailerSize is checksum LSB and end marker
	RequestResponseTrailerSize = 2
	RequestResponseMinSize     = RequestResponseHeaderSize + RequestResponseTrailerSize
)

type Operation uint8

const (
	OperationRead  Operation = 0xc7
	OperationWrite Operation = 0xc8
)

func (op Operation) String() string {
	switch op {
	case OperationRead:
		return "READ"
	case OperationWrite:
		return "WRITE"
	}
	return "OTHER"
}

// ReadWrite reports whether the operation carries a read/write layer
func (op Operation) ReadWrite() bool {
	return op == OperationRead || op == OperationWrite
}

// RequestResponseHeader holds the request/response envelope.
// Numeric fields are little-endian. The checksum is split on the wire:
// the most significant byte leads the header, the least significant byte precedes the end marker.
type RequestResponseHeader struct {
	Sequence  uint8
	SubFlag   uint8
	Operation Operation
	Reserved  uint8
	Checksum  uint16
	EndMarker uint8
	Length    uint16
}

type RequestResponseLayer struct {
	layers.BaseLayer
	RequestResponseHeader
	// Class is the command class of the enclosing Layer0 frame, it selects the read/write shape
	Class CommandClass
}

var RequestResponseLayerType = gopacket.RegisterLayerType(RequestResponseLayerNum,
	gopacket.LayerTypeMetadata{Name: "RequestResponseLayerType", Decoder: gopacket.DecodeFunc(decodeRequestFrame)})

func (rr *RequestResponseLayer) LayerType() gopacket.LayerType {
	return RequestResponseLayerType
}

// SerializeTo wraps the buffer contents into the request/response header and trailer
func (rr *RequestResponseLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if opts.FixLengths {
		rr.Length = uint16(len(b.Bytes()))
	}
	headerBytes, err := b.PrependBytes(RequestResponseHeaderSize)
	if err != nil {
		return err
	}
	headerBytes[0] = uint8(rr.Checksum >> 8)
	headerBytes[1] = rr.Sequence
	headerBytes[2] = rr.SubFlag
	headerBytes[3] = uint8(rr.Operation)
	headerBytes[4] = rr.Reserved
	binary.LittleEndian.PutUint16(headerBytes[5:7], rr.Length)

	tailBytes, err := b.AppendBytes(RequestResponseTrailerSize)
	if err != nil {
		return err
	}
	tailBytes[0] = uint8(rr.Checksum & 0xff)
	tailBytes[1] = rr.EndMarker
	return nil
}

// DecodeFromBytes attempts to decode the Layer0 payload as a request/response frame
func (rr *RequestResponseLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < RequestResponseMinSize {
		df.SetTruncated()
		return ErrTooShort{Layer: "RequestResponse", Need: RequestResponseMinSize, Got: len(data)}
	}
	n := len(data)

	rr.BaseLayer = layers.BaseLayer{
		Contents: data[:RequestResponseHeaderSize],
		Payload:  data[RequestResponseHeaderSize : n-RequestResponseTrailerSize],
	}

	rr.Sequence = data[1]
	rr.SubFlag = data[2]
	rr.Operation = Operation(data[3])
	rr.Reserved = data[4]
	rr.Length = binary.LittleEndian.Uint16(data[5:7])
	rr.Checksum = uint16(data[0])<<8 | uint16(data[n-2])
	rr.EndMarker = data[n-1]

	log.Debug("RequestResponse: crc: %04x seq: %02x sub: %02x op: %02x reserved: %02x len: %04x",
		rr.Checksum, rr.Sequence, rr.SubFlag, uint8(rr.Operation), rr.Reserved, rr.Length)
	return nil
}

func (rr *RequestResponseLayer) CanDecode() gopacket.LayerClass {
	return RequestResponseLayerType
}

func (rr *RequestResponseLayer) NextLayerType() gopacket.LayerType {
	if !rr.Operation.ReadWrite() {
		return gopacket.LayerTypePayload
	}
	if rr.Class == CommandClassResponse {
		return ReadWriteResponseLayerType
	}
	return ReadWriteRequestLayerType
}

// Shape is the read/write layout selected by the command class
func (rr *RequestResponseLayer) Shape() Shape {
	if rr.Class == CommandClassResponse {
		return ResponseShape
	}
	return RequestShape
}

func decodeRequestFrame(data []byte, p gopacket.PacketBuilder) error {
	return decodeRequestResponse(data, p, CommandClassRequest)
}

func decodeResponseFrame(data []byte, p gopacket.PacketBuilder) error {
	return decodeRequestResponse(data, p, CommandClassResponse)
}

// decodeRequestResponse decodes the envelope and, for read/write operations,
// the inner layer in the shape picked by the class. The inner layer needs the
// envelope's sequence, checksum and length for its findings.
func decodeRequestResponse(data []byte, p gopacket.PacketBuilder, class CommandClass) error {
	rr := &RequestResponseLayer{Class: class}
	err := rr.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(rr)

	if !rr.Operation.ReadWrite() {
		return p.NextDecoder(gopacket.LayerTypePayload)
	}

	rw := &ReadWriteLayer{Shape: rr.Shape()}
	err = rw.DecodeFromBytes(rr.Payload, p)
	if err != nil {
		return err
	}
	rw.Verify(rr)
	p.AddLayer(rw)
	return nil
}
