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
	"encoding/hex"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/reveng/go-hycap/pkg/log"
)

const (
	ReadWriteRequestLayerNum  = 2103
	ReadWriteResponseLayerNum = 2104
	// ReadWriteRequestHeaderSize is 1+2+2+1 reserved bytes, address and length
	ReadWriteRequestHeaderSize = 12
	// ReadWriteResponseHeaderSize is 7 reserved bytes, address and length
	ReadWriteResponseHeaderSize = 13
	readWriteResponseReserved   = 7
)

// Shape is the wire layout of a read/write operation
type Shape uint8

const (
	RequestShape Shape = iota
	ResponseShape
)

func (s Shape) HeaderSize() int {
	if s == ResponseShape {
		return ReadWriteResponseHeaderSize
	}
	return ReadWriteRequestHeaderSize
}

// LayerName names the layer in errors and findings
func (s Shape) LayerName() string {
	if s == ResponseShape {
		return "ReadWriteResponse"
	}
	return "ReadWriteRequest"
}

func (s Shape) String() string {
	if s == ResponseShape {
		return "response"
	}
	return "request"
}

// ReadWriteRequestReserved are the leading fields of the request shape whose meaning is unknown
type ReadWriteRequestReserved struct {
	Reserved1 uint8
	Reserved2 uint16
	Reserved3 uint16
	Reserved4 uint8
}

// ReadWriteLayer is the innermost memory read/write operation
type ReadWriteLayer struct {
	layers.BaseLayer
	Shape Shape
	ReadWriteRequestReserved
	// ResponseReserved holds the leading bytes of the response shape
	ResponseReserved [readWriteResponseReserved]byte
	Address          uint32
	Length           uint16
	Content          []byte

	// Checksum is the value computed from address, length and content.
	// Requests include the sequence offset once Verify has seen the envelope.
	Checksum       uint16
	ChecksumStatus ChecksumStatus
	// LengthMismatch is set when the content does not fill the length declared by the envelope
	LengthMismatch bool
}

var ReadWriteRequestLayerType = gopacket.RegisterLayerType(ReadWriteRequestLayerNum,
	gopacket.LayerTypeMetadata{Name: "ReadWriteRequestLayerType", Decoder: gopacket.DecodeFunc(decodeReadWriteRequest)})

var ReadWriteResponseLayerType = gopacket.RegisterLayerType(ReadWriteResponseLayerNum,
	gopacket.LayerTypeMetadata{Name: "ReadWriteResponseLayerType", Decoder: gopacket.DecodeFunc(decodeReadWriteResponse)})

// LayerType returns the request or the response layer type depending on the shape
func (rw *ReadWriteLayer) LayerType() gopacket.LayerType {
	if rw.Shape == ResponseShape {
		return ReadWriteResponseLayerType
	}
	return ReadWriteRequestLayerType
}

func (rw *ReadWriteLayer) CanDecode() gopacket.LayerClass {
	return rw.LayerType()
}

func (rw *ReadWriteLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func (rw *ReadWriteLayer) SerializeHeader(buf []byte) {
	offset := 0
	if rw.Shape == ResponseShape {
		copy(buf[0:readWriteResponseReserved], rw.ResponseReserved[:])
		offset = readWriteResponseReserved
	} else {
		buf[0] = rw.Reserved1
		binary.LittleEndian.PutUint16(buf[1:3], rw.Reserved2)
		binary.LittleEndian.PutUint16(buf[3:5], rw.Reserved3)
		buf[5] = rw.Reserved4
		offset = 6
	}
	binary.LittleEndian.PutUint32(buf[offset:offset+4], rw.Address)
	binary.LittleEndian.PutUint16(buf[offset+4:offset+6], rw.Length)
}

// SerializeTo writes header and content. The layer is innermost, so it appends.
func (rw *ReadWriteLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if opts.FixLengths {
		rw.Length = uint16(len(rw.Content))
	}
	bytes, err := b.AppendBytes(rw.Shape.HeaderSize() + len(rw.Content))
	if err != nil {
		return err
	}
	rw.SerializeHeader(bytes)
	copy(bytes[rw.Shape.HeaderSize():], rw.Content)
	return nil
}

// DecodeFromBytes decodes the operation in the layout given by rw.Shape.
// The checksum is computed without the request sequence offset, see Verify.
func (rw *ReadWriteLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	headerSize := rw.Shape.HeaderSize()
	if len(data) < headerSize {
		df.SetTruncated()
		return ErrTooShort{Layer: rw.Shape.LayerName(), Need: headerSize, Got: len(data)}
	}

	rw.BaseLayer = layers.BaseLayer{
		Contents: data[:headerSize],
		Payload:  []byte{},
	}

	offset := 0
	if rw.Shape == ResponseShape {
		copy(rw.ResponseReserved[:], data[0:readWriteResponseReserved])
		offset = readWriteResponseReserved
	} else {
		rw.Reserved1 = data[0]
		rw.Reserved2 = binary.LittleEndian.Uint16(data[1:3])
		rw.Reserved3 = binary.LittleEndian.Uint16(data[3:5])
		rw.Reserved4 = data[5]
		offset = 6
	}
	rw.Address = binary.LittleEndian.Uint32(data[offset : offset+4])
	rw.Length = binary.LittleEndian.Uint16(data[offset+4 : offset+6])
	rw.Content = data[headerSize:]
	rw.Checksum = Checksum(rw.Address, rw.Length, rw.Content)

	log.Debug("ReadWrite %s: addr: %08x len: %04x crc: %04x content: %d",
		rw.Shape, rw.Address, rw.Length, rw.Checksum, len(rw.Content))
	if log.Enabled(log.DebugLevel) && len(rw.Content) > 0 {
		log.Debug("ReadWrite content:\n%s", hex.Dump(rw.Content))
	}
	return nil
}

// Verify applies the request sequence offset and compares the checksum and the
// content length against the enclosing request/response frame. Both outcomes are findings only.
func (rw *ReadWriteLayer) Verify(rr *RequestResponseLayer) {
	if rw.Shape == RequestShape {
		rw.Checksum = RequestChecksum(rr.Sequence, rw.Address, rw.Length, rw.Content)
	} else {
		rw.Checksum = Checksum(rw.Address, rw.Length, rw.Content)
	}
	rw.ChecksumStatus = VerifyChecksum(rr.Checksum, rw.Checksum)
	rw.LengthMismatch = len(rw.Content) != int(rr.Length)-rw.Shape.HeaderSize()

	if rw.ChecksumStatus == ChecksumMismatch {
		log.Debug("ReadWrite checksum mismatch: addr: %08x expected: %04x computed: %04x",
			rw.Address, rr.Checksum, rw.Checksum)
	}
	if rw.LengthMismatch {
		log.Debug("ReadWrite length mismatch: addr: %08x declared: %d content: %d",
			rw.Address, int(rr.Length)-rw.Shape.HeaderSize(), len(rw.Content))
	}
}

func decodeReadWrite(data []byte, p gopacket.PacketBuilder, shape Shape) error {
	rw := &ReadWriteLayer{Shape: shape}
	err := rw.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(rw)
	return nil
}

func decodeReadWriteRequest(data []byte, p gopacket.PacketBuilder) error {
	return decodeReadWrite(data, p, RequestShape)
}

func decodeReadWriteResponse(data []byte, p gopacket.PacketBuilder) error {
	return decodeReadWrite(data, p, ResponseShape)
}
