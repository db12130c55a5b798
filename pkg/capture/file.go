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

package capture

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	hylayers "github.com/reveng/go-hycap/pkg/layers"
	"github.com/reveng/go-hycap/pkg/log"
)

const (
	// usbmon record header sizes, the mmapped variant carries 16 more bytes
	usbmonHeaderSize        = 48
	usbmonMmappedHeaderSize = 64
	usbmonCapturedOffset    = 36
	usbLayerHeaderSize      = 40
)

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// Options select which transfers a FileSource yields
type Options struct {
	// BulkOnly drops control, interrupt and isochronous transfers
	BulkOnly bool
	// Device keeps only transfers of this device address. Zero keeps all.
	Device uint16
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// FileSource reads USB transfers from a pcap or pcapng capture
type FileSource struct {
	reader  packetReader
	closer  io.Closer
	opts    Options
	records int
	skipped int
}

var _ Source = &FileSource{}

// OpenFile opens a capture file. The format is detected from its magic number.
func OpenFile(path string, opts Options) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := NewReaderSource(f, opts)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("Error while opening capture %s: %w", path, err)
	}
	src.closer = f
	log.Info("Opened capture: %s link type: %s", path, src.reader.LinkType())
	return src, nil
}

// NewReaderSource reads a pcap or pcapng stream
func NewReaderSource(r io.Reader, opts Options) (*FileSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(pcapngMagic))
	if err != nil {
		return nil, err
	}

	var reader packetReader
	if bytes.Equal(magic, pcapngMagic) {
		reader, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		reader, err = pcapgo.NewReader(br)
	}
	if err != nil {
		return nil, err
	}

	switch reader.LinkType() {
	case hylayers.LinkTypeUSBLinux, hylayers.LinkTypeUSBLinuxMmapped, hylayers.LinkTypeUSBPcap:
	default:
		return nil, ErrUnknownLinkType{LinkType: reader.LinkType()}
	}

	return &FileSource{
		reader: reader,
		opts:   opts,
	}, nil
}

func (s *FileSource) Close() error {
	log.Debug("Closing capture: records: %d skipped: %d", s.records, s.skipped)
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Next returns the next data carrying transfer which passes the options
func (s *FileSource) Next() (*Transfer, error) {
	for {
		data, ci, err := s.reader.ReadPacketData()
		if err != nil {
			return nil, err
		}
		s.records++

		var t *Transfer
		switch s.reader.LinkType() {
		case hylayers.LinkTypeUSBPcap:
			t = s.decodeUSBPcap(data)
		default:
			t = s.decodeUsbmon(data)
		}
		if t == nil || !s.accept(t) {
			continue
		}
		t.Timestamp = ci.Timestamp
		return t, nil
	}
}

func (s *FileSource) accept(t *Transfer) bool {
	if len(t.Data) == 0 {
		return false
	}
	if s.opts.BulkOnly && !t.Bulk {
		return false
	}
	if s.opts.Device != 0 && s.opts.Device != t.Device {
		return false
	}
	return true
}

func (s *FileSource) usbmonHeaderSize() int {
	if s.reader.LinkType() == hylayers.LinkTypeUSBLinuxMmapped {
		return usbmonMmappedHeaderSize
	}
	return usbmonHeaderSize
}

// decodeUsbmon takes the record fields from the gopacket USB layer. The payload
// is cut here since the header size depends on the link type.
func (s *FileSource) decodeUsbmon(data []byte) *Transfer {
	headerSize := s.usbmonHeaderSize()
	if len(data) < headerSize {
		s.skipped++
		log.Warning("Skipping usbmon record %d: %v", s.records,
			hylayers.ErrTooShort{Layer: "usbmon", Need: headerSize, Got: len(data)})
		return nil
	}

	captured := binary.LittleEndian.Uint32(data[usbmonCapturedOffset : usbmonCapturedOffset+4])
	// the layer decodes the fixed fields only, with the captured length cleared
	// it never slices past the copied header
	header := make([]byte, usbLayerHeaderSize)
	copy(header, data[:usbLayerHeaderSize])
	binary.LittleEndian.PutUint32(header[usbmonCapturedOffset:], 0)
	usb := &layers.USB{}
	if err := usb.DecodeFromBytes(header, gopacket.NilDecodeFeedback); err != nil {
		s.skipped++
		log.Warning("Skipping usbmon record %d: %s", s.records, err)
		return nil
	}
	if !usb.Data {
		return nil
	}

	payload := data[headerSize:]
	if int(captured) < len(payload) {
		payload = payload[:captured]
	}

	direction := HostToDevice
	if usb.Direction == layers.USBDirectionTypeIn {
		direction = DeviceToHost
	}
	return &Transfer{
		Direction: direction,
		Data:      payload,
		Device:    uint16(usb.DeviceAddress),
		Endpoint:  usb.EndpointNumber,
		Bulk:      usb.TransferType == layers.USBTransportTypeBulk,
	}
}

func (s *FileSource) decodeUSBPcap(data []byte) *Transfer {
	u := &hylayers.USBPcapLayer{}
	if err := u.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		s.skipped++
		log.Warning("Skipping USBPcap record %d: %s", s.records, err)
		return nil
	}
	direction := HostToDevice
	if u.In() {
		direction = DeviceToHost
	}
	return &Transfer{
		Direction: direction,
		Data:      u.LayerPayload(),
		Device:    u.Device,
		Endpoint:  u.Endpoint &^ 0x80,
		Bulk:      u.Transfer == hylayers.USBPcapTransferBulk,
	}
}
