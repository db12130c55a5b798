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
)

// Link types of USB captures. gopacket only knows the mmapped usbmon one.
const (
	LinkTypeUSBLinux        layers.LinkType = 189
	LinkTypeUSBLinuxMmapped layers.LinkType = 220
	LinkTypeUSBPcap         layers.LinkType = 249
)

const (
	// USBPcapLayerNum identifies the layer
	USBPcapLayerNum = 2105
	// USBPcapHeaderSize is the size of the common USBPcap packet header
	USBPcapHeaderSize = 27
	usbpcapEndpointIn = 0x80
)

type USBPcapTransfer uint8

const (
	USBPcapTransferIsochronous USBPcapTransfer = 0
	USBPcapTransferInterrupt   USBPcapTransfer = 1
	USBPcapTransferControl     USBPcapTransfer = 2
	USBPcapTransferBulk        USBPcapTransfer = 3
)

// USBPcapLayer is the pseudo header written by the Windows USBPcap driver.
// All numeric fields are little-endian.
type USBPcapLayer struct {
	layers.BaseLayer
	HeaderLength uint16
	IrpID        uint64
	Status       uint32
	Function     uint16
	Info         uint8
	Bus          uint16
	Device       uint16
	Endpoint     uint8
	Transfer     USBPcapTransfer
	DataLength   uint32
}

var USBPcapLayerType = gopacket.RegisterLayerType(USBPcapLayerNum,
	gopacket.LayerTypeMetadata{Name: "USBPcapLayerType", Decoder: gopacket.DecodeFunc(decodeUSBPcap)})

func (u *USBPcapLayer) LayerType() gopacket.LayerType {
	return USBPcapLayerType
}

// In reports a device to host transfer
func (u *USBPcapLayer) In() bool {
	return u.Endpoint&usbpcapEndpointIn != 0
}

func (u *USBPcapLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if opts.FixLengths {
		u.HeaderLength = USBPcapHeaderSize
		u.DataLength = uint32(len(b.Bytes()))
	}
	buf, err := b.PrependBytes(int(u.HeaderLength))
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(buf[0:2], u.HeaderLength)
	binary.LittleEndian.PutUint64(buf[2:10], u.IrpID)
	binary.LittleEndian.PutUint32(buf[10:14], u.Status)
	binary.LittleEndian.PutUint16(buf[14:16], u.Function)
	buf[16] = u.Info
	binary.LittleEndian.PutUint16(buf[17:19], u.Bus)
	binary.LittleEndian.PutUint16(buf[19:21], u.Device)
	buf[21] = u.Endpoint
	buf[22] = uint8(u.Transfer)
	binary.LittleEndian.PutUint32(buf[23:27], u.DataLength)
	return nil
}

// DecodeFromBytes decodes the pseudo header. Transfer specific header extensions
// (isochronous and control stages) are skipped through HeaderLength.
func (u *USBPcapLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < USBPcapHeaderSize {
		df.SetTruncated()
		return ErrTooShort{Layer: "USBPcap", Need: USBPcapHeaderSize, Got: len(data)}
	}
	u.HeaderLength = binary.LittleEndian.Uint16(data[0:2])
	if int(u.HeaderLength) < USBPcapHeaderSize || int(u.HeaderLength) > len(data) {
		df.SetTruncated()
		return ErrTooShort{Layer: "USBPcap", Need: int(u.HeaderLength), Got: len(data)}
	}
	u.IrpID = binary.LittleEndian.Uint64(data[2:10])
	u.Status = binary.LittleEndian.Uint32(data[10:14])
	u.Function = binary.LittleEndian.Uint16(data[14:16])
	u.Info = data[16]
	u.Bus = binary.LittleEndian.Uint16(data[17:19])
	u.Device = binary.LittleEndian.Uint16(data[19:21])
	u.Endpoint = data[21]
	u.Transfer = USBPcapTransfer(data[22])
	u.DataLength = binary.LittleEndian.Uint32(data[23:27])

	end := len(data)
	if captured := int(u.HeaderLength) + int(u.DataLength); captured < end {
		end = captured
	}
	u.BaseLayer = layers.BaseLayer{
		Contents: data[:u.HeaderLength],
		Payload:  data[u.HeaderLength:end],
	}
	return nil
}

func (u *USBPcapLayer) CanDecode() gopacket.LayerClass {
	return USBPcapLayerType
}

func (u *USBPcapLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

func decodeUSBPcap(data []byte, p gopacket.PacketBuilder) error {
	u := &USBPcapLayer{}
	err := u.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(u)
	return p.NextDecoder(gopacket.LayerTypePayload)
}
