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
	"errors"
	"testing"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, ls...))
	return buf.Bytes()
}

func decode(data []byte) gopacket.Packet {
	return gopacket.NewPacket(data, Layer0LayerType, gopacket.Default)
}

func requireTooShort(t *testing.T, packet gopacket.Packet, layer string) ErrTooShort {
	t.Helper()
	errLayer := packet.ErrorLayer()
	require.NotNil(t, errLayer)
	var tooShort ErrTooShort
	require.True(t, errors.As(errLayer.Error(), &tooShort), "unexpected error: %v", errLayer.Error())
	assert.Equal(t, layer, tooShort.Layer)
	return tooShort
}

func TestLayer0RoundTrip(t *testing.T) {
	l0 := &Layer0Layer{Layer0Header: Layer0Header{
		Reserved0:     0x02,
		CommandClass:  CommandClassCommand,
		Reserved2:     0x00,
		Flag:          0x10,
		Source:        0x20,
		Destination:   0x10,
		ResponseCount: 0x0102,
		Length:        0x0014,
	}}
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	data := encode(t, l0, gopacket.Payload(payload))

	assert.Equal(t, []byte{0x02, 0x00, 0x00, 0x10, 0x20, 0x10, 0x01, 0x02, 0x00, 0x14}, data[:Layer0HeaderSize])

	packet := decode(data)
	require.Nil(t, packet.ErrorLayer())
	decoded, ok := packet.Layer(Layer0LayerType).(*Layer0Layer)
	require.True(t, ok)
	assert.Equal(t, l0.Layer0Header, decoded.Layer0Header)
	assert.Equal(t, payload, decoded.LayerPayload())
	assert.NotNil(t, packet.Layer(gopacket.LayerTypePayload))
}

func TestLayer0FixLengths(t *testing.T) {
	buf := gopacket.NewSerializeBuffer()
	l0 := &Layer0Layer{Layer0Header: Layer0Header{CommandClass: CommandClassCommand}}
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, l0, gopacket.Payload([]byte{1, 2, 3})))
	assert.Equal(t, uint16(13), l0.Length)
}

func TestLayer0UnknownCommandClass(t *testing.T) {
	data := encode(t, &Layer0Layer{Layer0Header: Layer0Header{CommandClass: 0x07}}, gopacket.Payload([]byte{1, 2}))

	packet := decode(data)
	require.Nil(t, packet.ErrorLayer())
	l0 := packet.Layer(Layer0LayerType).(*Layer0Layer)
	assert.Equal(t, CommandClass(0x07), l0.CommandClass)
	assert.Equal(t, "07", l0.CommandClass.String())
	assert.False(t, l0.CommandClass.Known())
	assert.Nil(t, packet.Layer(RequestResponseLayerType))
}

func TestCommandClassNames(t *testing.T) {
	assert.Equal(t, "CMD", CommandClassCommand.String())
	assert.Equal(t, "REQ", CommandClassRequest.String())
	assert.Equal(t, "RES", CommandClassResponse.String())
}

func TestLayer0TooShort(t *testing.T) {
	packet := decode([]byte{0x00, 0x01, 0x00, 0x00, 0x00})
	tooShort := requireTooShort(t, packet, "Layer0")
	assert.Equal(t, Layer0HeaderSize, tooShort.Need)
	assert.Equal(t, 5, tooShort.Got)
	assert.Nil(t, packet.Layer(Layer0LayerType))
}

func TestRequestResponseTooShortKeepsLayer0(t *testing.T) {
	for _, payload := range [][]byte{nil, {0x01, 0x02, 0x03, 0x04}} {
		data := encode(t,
			&Layer0Layer{Layer0Header: Layer0Header{CommandClass: CommandClassRequest, Flag: 0x33}},
			gopacket.Payload(payload))

		packet := decode(data)
		tooShort := requireTooShort(t, packet, "RequestResponse")
		assert.Equal(t, RequestResponseMinSize, tooShort.Need)
		assert.Equal(t, len(payload), tooShort.Got)

		l0, ok := packet.Layer(Layer0LayerType).(*Layer0Layer)
		require.True(t, ok)
		assert.Equal(t, uint8(0x33), l0.Flag)
	}
}

func TestRequestResponseSplitChecksum(t *testing.T) {
	inner := []byte{0xaa, 0xbb, 0xcc}
	rr := &RequestResponseLayer{RequestResponseHeader: RequestResponseHeader{
		Sequence:  0x05,
		SubFlag:   0x02,
		Operation: 0x10,
		Reserved:  0x00,
		Checksum:  0xa1b2,
		EndMarker: 0x03,
		Length:    uint16(len(inner)),
	}}
	data := encode(t, &Layer0Layer{Layer0Header: Layer0Header{CommandClass: CommandClassResponse}}, rr, gopacket.Payload(inner))

	payload := data[Layer0HeaderSize:]
	assert.Equal(t, byte(0xa1), payload[0], "checksum MSB leads the header")
	assert.Equal(t, byte(0xb2), payload[len(payload)-2], "checksum LSB precedes the end marker")
	assert.Equal(t, []byte{0x03, 0x00}, payload[5:7], "length is little-endian")

	packet := decode(data)
	require.Nil(t, packet.ErrorLayer())
	decoded := packet.Layer(RequestResponseLayerType).(*RequestResponseLayer)
	assert.Equal(t, rr.RequestResponseHeader, decoded.RequestResponseHeader)
	assert.Equal(t, CommandClassResponse, decoded.Class)
	assert.Equal(t, inner, decoded.LayerPayload())
	assert.Equal(t, gopacket.LayerTypePayload, decoded.NextLayerType())
}

func TestReadRequest(t *testing.T) {
	const seq = 0x07
	rw := &ReadWriteLayer{
		Shape:                    RequestShape,
		ReadWriteRequestReserved: ReadWriteRequestReserved{Reserved1: 0x01, Reserved2: 0x0203, Reserved3: 0x0405, Reserved4: 0x06},
		Address:                  0x00001000,
		Length:                   0x0100,
	}
	rr := &RequestResponseLayer{RequestResponseHeader: RequestResponseHeader{
		Sequence:  seq,
		Operation: OperationRead,
		Checksum:  RequestChecksum(seq, 0x1000, 0x0100, nil),
		EndMarker: 0x03,
		Length:    ReadWriteRequestHeaderSize,
	}}
	data := encode(t, &Layer0Layer{Layer0Header: Layer0Header{CommandClass: CommandClassRequest}}, rr, rw)

	inner := data[Layer0HeaderSize+RequestResponseHeaderSize:]
	assert.Equal(t, []byte{0x01, 0x03, 0x02, 0x05, 0x04, 0x06, 0x00, 0x10, 0x00, 0x00, 0x00, 0x01}, inner[:ReadWriteRequestHeaderSize])

	packet := decode(data)
	require.Nil(t, packet.ErrorLayer())
	assert.Nil(t, packet.Layer(ReadWriteResponseLayerType))
	decoded, ok := packet.Layer(ReadWriteRequestLayerType).(*ReadWriteLayer)
	require.True(t, ok)
	assert.Equal(t, RequestShape, decoded.Shape)
	assert.Equal(t, rw.ReadWriteRequestReserved, decoded.ReadWriteRequestReserved)
	assert.Equal(t, uint32(0x1000), decoded.Address)
	assert.Equal(t, uint16(0x0100), decoded.Length)
	assert.Empty(t, decoded.Content)
	assert.Equal(t, rr.Checksum, decoded.Checksum)
	assert.Equal(t, ChecksumMatch, decoded.ChecksumStatus)
	assert.False(t, decoded.LengthMismatch)
}

func TestReadResponse(t *testing.T) {
	content := make([]byte, 32)
	for i := range content {
		content[i] = byte(0x80 + i)
	}
	rw := &ReadWriteLayer{
		Shape:            ResponseShape,
		ResponseReserved: [7]byte{1, 2, 3, 4, 5, 6, 7},
		Address:          0x00204000,
		Length:           uint16(len(content)),
		Content:          content,
	}
	rr := &RequestResponseLayer{RequestResponseHeader: RequestResponseHeader{
		Sequence:  0x09,
		Operation: OperationRead,
		// responses carry the checksum without the sequence offset
		Checksum:  Checksum(0x00204000, uint16(len(content)), content),
		EndMarker: 0x03,
		Length:    uint16(ReadWriteResponseHeaderSize + len(content)),
	}}
	data := encode(t, &Layer0Layer{Layer0Header: Layer0Header{CommandClass: CommandClassResponse}}, rr, rw)

	packet := decode(data)
	require.Nil(t, packet.ErrorLayer())
	decoded, ok := packet.Layer(ReadWriteResponseLayerType).(*ReadWriteLayer)
	require.True(t, ok)
	assert.Equal(t, ResponseShape, decoded.Shape)
	assert.Equal(t, rw.ResponseReserved, decoded.ResponseReserved)
	assert.Equal(t, uint32(0x00204000), decoded.Address)
	assert.Equal(t, content, decoded.Content)
	assert.Equal(t, ChecksumMatch, decoded.ChecksumStatus)
	assert.False(t, decoded.LengthMismatch)
}

func TestReadWriteResponseWireLayout(t *testing.T) {
	payload := []byte{
		// reserved
		0xe0, 0xe1, 0xe2, 0xe3, 0xe4, 0xe5, 0xe6,
		// address and length
		0x00, 0x10, 0x00, 0x00, 0x04, 0x00,
		// content
		0x01, 0x02, 0x03, 0x04,
	}
	rw := &ReadWriteLayer{Shape: ResponseShape}
	require.NoError(t, rw.DecodeFromBytes(payload, gopacket.NilDecodeFeedback))
	assert.Equal(t, [7]byte{0xe0, 0xe1, 0xe2, 0xe3, 0xe4, 0xe5, 0xe6}, rw.ResponseReserved)
	assert.Equal(t, uint32(0x1000), rw.Address)
	assert.Equal(t, uint16(4), rw.Length)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, rw.Content)

	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, rw.SerializeTo(buf, gopacket.SerializeOptions{}))
	assert.Equal(t, payload, buf.Bytes())
}

func TestReadWriteRequestWireLayout(t *testing.T) {
	payload := []byte{
		// reserved byte, two reserved words, reserved byte
		0x11, 0x33, 0x22, 0x55, 0x44, 0x66,
		// address and length
		0x00, 0x40, 0x20, 0x00, 0x10, 0x00,
		// content
		0xaa, 0xbb,
	}
	rw := &ReadWriteLayer{Shape: RequestShape}
	require.NoError(t, rw.DecodeFromBytes(payload, gopacket.NilDecodeFeedback))
	assert.Equal(t, ReadWriteRequestReserved{Reserved1: 0x11, Reserved2: 0x2233, Reserved3: 0x4455, Reserved4: 0x66}, rw.ReadWriteRequestReserved)
	assert.Equal(t, uint32(0x00204000), rw.Address)
	assert.Equal(t, uint16(0x0010), rw.Length)
	assert.Equal(t, []byte{0xaa, 0xbb}, rw.Content)

	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, rw.SerializeTo(buf, gopacket.SerializeOptions{}))
	assert.Equal(t, payload, buf.Bytes())
}

func TestReadWriteHeaderBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		shape   Shape
		size    int
		content int
	}{
		{name: "request header only", shape: RequestShape, size: 12, content: 0},
		{name: "response header only", shape: ResponseShape, size: 13, content: 0},
		{name: "response one content byte", shape: ResponseShape, size: 14, content: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := make([]byte, tt.size)
			for i := range payload {
				payload[i] = byte(i + 1)
			}
			rw := &ReadWriteLayer{Shape: tt.shape}
			require.NoError(t, rw.DecodeFromBytes(payload, gopacket.NilDecodeFeedback))
			assert.Len(t, rw.Content, tt.content)
			offset := tt.shape.HeaderSize() - 6
			assert.Equal(t, uint32(offset+1)|uint32(offset+2)<<8|uint32(offset+3)<<16|uint32(offset+4)<<24, rw.Address)
			assert.Equal(t, uint16(offset+5)|uint16(offset+6)<<8, rw.Length)
		})
	}
}

func TestReadResponseEncodeWithoutContent(t *testing.T) {
	data, err := ReadWriteFrame{
		Class:     CommandClassResponse,
		Sequence:  0x07,
		Operation: OperationWrite,
		Address:   0x100,
		Length:    16,
	}.Encode()
	require.NoError(t, err)

	packet := decode(data)
	require.Nil(t, packet.ErrorLayer())
	rw := packet.Layer(ReadWriteResponseLayerType).(*ReadWriteLayer)
	assert.Equal(t, uint32(0x100), rw.Address)
	assert.Equal(t, uint16(16), rw.Length)
	assert.Empty(t, rw.Content)
	assert.Equal(t, ChecksumMatch, rw.ChecksumStatus)
}

func TestReadWriteFindings(t *testing.T) {
	content := []byte{1, 2, 3, 4}
	rw := &ReadWriteLayer{Shape: RequestShape, Address: 0x2000, Length: 4, Content: content}
	rr := &RequestResponseLayer{RequestResponseHeader: RequestResponseHeader{
		Sequence:  0x01,
		Operation: OperationWrite,
		Checksum:  0xbeef,
		Length:    ReadWriteRequestHeaderSize + 8,
	}}
	data := encode(t, &Layer0Layer{Layer0Header: Layer0Header{CommandClass: CommandClassRequest}}, rr, rw)

	packet := decode(data)
	require.Nil(t, packet.ErrorLayer(), "findings never abort decoding")
	decoded := packet.Layer(ReadWriteRequestLayerType).(*ReadWriteLayer)
	assert.Equal(t, ChecksumMismatch, decoded.ChecksumStatus)
	assert.Equal(t, RequestChecksum(0x01, 0x2000, 4, content), decoded.Checksum)
	assert.True(t, decoded.LengthMismatch)
	assert.Equal(t, content, decoded.Content)
}

func TestReadWriteTooShort(t *testing.T) {
	tests := []struct {
		name  string
		class CommandClass
		inner []byte
		layer string
		need  int
	}{
		{name: "request", class: CommandClassRequest, inner: make([]byte, 11), layer: "ReadWriteRequest", need: ReadWriteRequestHeaderSize},
		{name: "response", class: CommandClassResponse, inner: make([]byte, 12), layer: "ReadWriteResponse", need: ReadWriteResponseHeaderSize},
		{name: "empty response", class: CommandClassResponse, inner: nil, layer: "ReadWriteResponse", need: ReadWriteResponseHeaderSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := &RequestResponseLayer{RequestResponseHeader: RequestResponseHeader{Sequence: 0x42, Operation: OperationRead}}
			data := encode(t, &Layer0Layer{Layer0Header: Layer0Header{CommandClass: tt.class}}, rr, gopacket.Payload(tt.inner))

			packet := decode(data)
			tooShort := requireTooShort(t, packet, tt.layer)
			assert.Equal(t, tt.need, tooShort.Need)

			require.NotNil(t, packet.Layer(Layer0LayerType))
			decoded, ok := packet.Layer(RequestResponseLayerType).(*RequestResponseLayer)
			require.True(t, ok)
			assert.Equal(t, uint8(0x42), decoded.Sequence)
		})
	}
}

func TestOperationNames(t *testing.T) {
	assert.Equal(t, "READ", OperationRead.String())
	assert.Equal(t, "WRITE", OperationWrite.String())
	assert.Equal(t, "OTHER", Operation(0x01).String())
	assert.True(t, OperationWrite.ReadWrite())
	assert.False(t, Operation(0x01).ReadWrite())
}

func TestUSBPcapLayer(t *testing.T) {
	payload := []byte{0x00, 0x04, 0x00, 0x10}
	u := &USBPcapLayer{IrpID: 0x1122, Bus: 1, Device: 3, Endpoint: 0x81, Transfer: USBPcapTransferBulk, Info: 0x01}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, u, gopacket.Payload(payload)))

	decoded := &USBPcapLayer{}
	require.NoError(t, decoded.DecodeFromBytes(buf.Bytes(), gopacket.NilDecodeFeedback))
	assert.Equal(t, uint16(USBPcapHeaderSize), decoded.HeaderLength)
	assert.Equal(t, uint64(0x1122), decoded.IrpID)
	assert.Equal(t, uint16(3), decoded.Device)
	assert.Equal(t, USBPcapTransferBulk, decoded.Transfer)
	assert.Equal(t, uint32(len(payload)), decoded.DataLength)
	assert.True(t, decoded.In())
	assert.Equal(t, payload, decoded.LayerPayload())

	decoded.Endpoint = 0x02
	assert.False(t, decoded.In())
}

func TestUSBPcapLayerTooShort(t *testing.T) {
	err := (&USBPcapLayer{}).DecodeFromBytes(make([]byte, 10), gopacket.NilDecodeFeedback)
	var tooShort ErrTooShort
	require.True(t, errors.As(err, &tooShort))
	assert.Equal(t, "USBPcap", tooShort.Layer)
}

func TestReadWriteFrameEncode(t *testing.T) {
	content := []byte{0x10, 0x20, 0x30, 0x40}
	data, err := ReadWriteFrame{
		Class:     CommandClassRequest,
		Sequence:  0x11,
		Operation: OperationWrite,
		Address:   0x00300010,
		Length:    uint16(len(content)),
		Content:   content,
	}.Encode()
	require.NoError(t, err)

	packet := decode(data)
	require.Nil(t, packet.ErrorLayer())
	l0 := packet.Layer(Layer0LayerType).(*Layer0Layer)
	assert.Equal(t, uint16(len(data)), l0.Length)
	rr := packet.Layer(RequestResponseLayerType).(*RequestResponseLayer)
	assert.Equal(t, OperationWrite, rr.Operation)
	assert.Equal(t, uint8(0x03), rr.EndMarker)
	rw := packet.Layer(ReadWriteRequestLayerType).(*ReadWriteLayer)
	assert.Equal(t, content, rw.Content)
	assert.Equal(t, ChecksumMatch, rw.ChecksumStatus)
	assert.False(t, rw.LengthMismatch)
}
