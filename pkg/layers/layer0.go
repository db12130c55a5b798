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
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/reveng/go-hycap/pkg/log"
)

func init() {
	initUnknownCommandClasses()
	initActualCommandClasses()
}

const (
	// Layer0LayerNum identifies the layer
	Layer0LayerNum = 2101
	// Layer0HeaderSize is the size of the outer USB payload envelope
	Layer0HeaderSize = 10
)

// CommandClass is the second byte of every USB payload.
// Classes other than the known ones are carried as opaque numeric tags.
type CommandClass uint8

const (
	CommandClassCommand  CommandClass = 0x00
	CommandClassRequest  CommandClass = 0x01
	CommandClassResponse CommandClass = 0x04
)

var CommandClassMetadata [256]layers.EnumMetadata

func initUnknownCommandClasses() {
	for i := 0; i < 256; i++ {
		CommandClassMetadata[i] = layers.EnumMetadata{
			DecodeWith: gopacket.DecodePayload,
			Name:       fmt.Sprintf("%02X", i),
			LayerType:  gopacket.LayerTypePayload,
		}
	}
}

func initActualCommandClasses() {
	CommandClassMetadata[CommandClassCommand] = layers.EnumMetadata{DecodeWith: gopacket.DecodePayload, Name: "CMD", LayerType: gopacket.LayerTypePayload}
	CommandClassMetadata[CommandClassRequest] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(decodeRequestFrame), Name: "REQ", LayerType: RequestResponseLayerType}
	CommandClassMetadata[CommandClassResponse] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(decodeResponseFrame), Name: "RES", LayerType: RequestResponseLayerType}
}

// LayerType returns CommandClassMetadata.LayerType
func (c CommandClass) LayerType() gopacket.LayerType {
	return CommandClassMetadata[c].LayerType
}

// Decode calls CommandClassMetadata.DecodeWith's decoder
func (c CommandClass) Decode(data []byte, p gopacket.PacketBuilder) error {
	return CommandClassMetadata[c].DecodeWith.Decode(data, p)
}

// String returns CommandClassMetadata.Name
func (c CommandClass) String() string {
	return CommandClassMetadata[c].Name
}

// Known reports whether the class carries a request/response envelope or is a plain command
func (c CommandClass) Known() bool {
	switch c {
	case CommandClassCommand, CommandClassRequest, CommandClassResponse:
		return true
	}
	return false
}

type Layer0Header struct {
	Reserved0     uint8
	CommandClass  CommandClass
	Reserved2     uint8
	Flag          uint8
	Source        uint8
	Destination   uint8
	ResponseCount uint16
	Length        uint16
}

// Layer0Layer is the outer envelope of each USB bulk payload. Numeric fields are big-endian.
type Layer0Layer struct {
	layers.BaseLayer
	Layer0Header
}

var Layer0LayerType = gopacket.RegisterLayerType(Layer0LayerNum,
	gopacket.LayerTypeMetadata{Name: "Layer0LayerType", Decoder: gopacket.DecodeFunc(decodeLayer0)})

func (l0 *Layer0Layer) LayerType() gopacket.LayerType {
	return Layer0LayerType
}

func (l0 *Layer0Layer) SerializeHeader(buf []byte) {
	buf[0] = l0.Reserved0
	buf[1] = uint8(l0.CommandClass)
	buf[2] = l0.Reserved2
	buf[3] = l0.Flag
	buf[4] = l0.Source
	buf[5] = l0.Destination
	binary.BigEndian.PutUint16(buf[6:8], l0.ResponseCount)
	binary.BigEndian.PutUint16(buf[8:10], l0.Length)
}

// SerializeTo prepends the Layer0 header to whatever the buffer already holds
func (l0 *Layer0Layer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	headerBytes, err := b.PrependBytes(Layer0HeaderSize)
	if err != nil {
		return err
	}
	if opts.FixLengths {
		l0.Length = uint16(len(b.Bytes()))
	}
	l0.SerializeHeader(headerBytes)
	return nil
}

// DecodeFromBytes attempts to decode the byte slice as a Layer0 frame
func (l0 *Layer0Layer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < Layer0HeaderSize {
		df.SetTruncated()
		return ErrTooShort{Layer: "Layer0", Need: Layer0HeaderSize, Got: len(data)}
	}

	l0.BaseLayer = layers.BaseLayer{
		Contents: data[:Layer0HeaderSize],
		Payload:  data[Layer0HeaderSize:],
	}

	l0.Reserved0 = data[0]
	l0.CommandClass = CommandClass(data[1])
	l0.Reserved2 = data[2]
	l0.Flag = data[3]
	l0.Source = data[4]
	l0.Destination = data[5]
	l0.ResponseCount = binary.BigEndian.Uint16(data[6:8])
	l0.Length = binary.BigEndian.Uint16(data[8:10])

	log.Debug("Layer0: class: %s flag: %02x src: %02x dst: %02x rcount: %04x len: %04x payload: %d",
		l0.CommandClass, l0.Flag, l0.Source, l0.Destination, l0.ResponseCount, l0.Length, len(l0.Payload))
	return nil
}

func (l0 *Layer0Layer) CanDecode() gopacket.LayerClass {
	return Layer0LayerType
}

func (l0 *Layer0Layer) NextLayerType() gopacket.LayerType {
	return l0.CommandClass.LayerType()
}

// decodeLayer0 hands the payload to the class decoder even when it is empty,
// so that a missing request/response envelope is reported as too short.
func decodeLayer0(data []byte, p gopacket.PacketBuilder) error {
	l0 := &Layer0Layer{}
	err := l0.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(l0)
	if l0.CommandClass == CommandClassRequest || l0.CommandClass == CommandClassResponse {
		return l0.CommandClass.Decode(l0.Payload, p)
	}
	return p.NextDecoder(l0.CommandClass)
}
