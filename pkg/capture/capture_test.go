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
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hylayers "github.com/reveng/go-hycap/pkg/layers"
)

const (
	usbTransferControl = 2
	usbTransferBulk    = 3
	usbmonDataAbsent   = '<'
)

type usbmonRecord struct {
	in       bool
	transfer byte
	device   byte
	dataFlag byte
	payload  []byte
}

func (r usbmonRecord) bytes(headerSize int) []byte {
	data := make([]byte, headerSize+len(r.payload))
	data[8] = 'C'
	data[9] = r.transfer
	data[10] = 0x01
	if r.in {
		data[10] |= 0x80
	}
	data[11] = r.device
	binary.LittleEndian.PutUint16(data[12:14], 1)
	data[14] = '-'
	data[15] = r.dataFlag
	binary.LittleEndian.PutUint32(data[32:36], uint32(len(r.payload)))
	binary.LittleEndian.PutUint32(data[36:40], uint32(len(r.payload)))
	copy(data[headerSize:], r.payload)
	return data
}

func writePcap(t *testing.T, linkType layers.LinkType, records ...[]byte) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	w := pcapgo.NewWriter(buf)
	require.NoError(t, w.WriteFileHeader(65536, linkType))
	ts := time.Unix(1600000000, 0)
	for i, r := range records {
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(r),
			Length:        len(r),
		}
		require.NoError(t, w.WritePacket(ci, r))
	}
	return buf
}

func usbmonCapture(t *testing.T, linkType layers.LinkType, headerSize int) *bytes.Buffer {
	return writePcap(t, linkType,
		usbmonRecord{transfer: usbTransferBulk, device: 5, payload: []byte{0x00, 0x01, 0x02}}.bytes(headerSize),
		usbmonRecord{in: true, transfer: usbTransferBulk, device: 5, dataFlag: usbmonDataAbsent}.bytes(headerSize),
		usbmonRecord{in: true, transfer: usbTransferBulk, device: 5, payload: []byte{0x00, 0x04}}.bytes(headerSize),
		usbmonRecord{transfer: usbTransferControl, device: 5, payload: []byte{0x80, 0x06}}.bytes(headerSize),
		usbmonRecord{in: true, transfer: usbTransferBulk, device: 7, payload: []byte{0xff}}.bytes(headerSize),
		make([]byte, 20),
	)
}

func TestUsbmonCapture(t *testing.T) {
	tests := []struct {
		name       string
		linkType   layers.LinkType
		headerSize int
	}{
		{name: "usbmon", linkType: hylayers.LinkTypeUSBLinux, headerSize: usbmonHeaderSize},
		{name: "usbmon mmapped", linkType: hylayers.LinkTypeUSBLinuxMmapped, headerSize: usbmonMmappedHeaderSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewReaderSource(usbmonCapture(t, tt.linkType, tt.headerSize), Options{})
			require.NoError(t, err)
			transfers, err := ReadAll(src)
			require.NoError(t, err)
			require.Len(t, transfers, 4)

			assert.Equal(t, HostToDevice, transfers[0].Direction)
			assert.Equal(t, []byte{0x00, 0x01, 0x02}, transfers[0].Data)
			assert.Equal(t, uint16(5), transfers[0].Device)
			assert.Equal(t, uint8(1), transfers[0].Endpoint)
			assert.True(t, transfers[0].Bulk)
			assert.Equal(t, int64(1600000000), transfers[0].Timestamp.Unix())

			assert.Equal(t, DeviceToHost, transfers[1].Direction)
			assert.Equal(t, []byte{0x00, 0x04}, transfers[1].Data)

			assert.False(t, transfers[2].Bulk)
			assert.Equal(t, uint16(7), transfers[3].Device)
		})
	}
}

func TestCaptureOptions(t *testing.T) {
	src, err := NewReaderSource(usbmonCapture(t, hylayers.LinkTypeUSBLinux, usbmonHeaderSize), Options{BulkOnly: true, Device: 5})
	require.NoError(t, err)
	transfers, err := ReadAll(src)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	for _, tr := range transfers {
		assert.True(t, tr.Bulk)
		assert.Equal(t, uint16(5), tr.Device)
	}
}

func TestUSBPcapCapture(t *testing.T) {
	record := func(endpoint uint8, transfer hylayers.USBPcapTransfer, payload []byte) []byte {
		buf := gopacket.NewSerializeBuffer()
		u := &hylayers.USBPcapLayer{Device: 2, Endpoint: endpoint, Transfer: transfer}
		require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, u, gopacket.Payload(payload)))
		return buf.Bytes()
	}
	capture := writePcap(t, hylayers.LinkTypeUSBPcap,
		record(0x01, hylayers.USBPcapTransferBulk, []byte{0x00, 0x01}),
		record(0x81, hylayers.USBPcapTransferBulk, nil),
		record(0x81, hylayers.USBPcapTransferBulk, []byte{0x00, 0x04, 0x00}),
		record(0x80, hylayers.USBPcapTransferControl, []byte{0x12, 0x01}),
	)

	src, err := NewReaderSource(capture, Options{BulkOnly: true})
	require.NoError(t, err)
	transfers, err := ReadAll(src)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	assert.Equal(t, HostToDevice, transfers[0].Direction)
	assert.Equal(t, DeviceToHost, transfers[1].Direction)
	assert.Equal(t, []byte{0x00, 0x04, 0x00}, transfers[1].Data)
	assert.Equal(t, uint8(1), transfers[1].Endpoint)
	assert.Equal(t, uint16(2), transfers[1].Device)
}

func TestPcapngCapture(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := pcapgo.NewNgWriter(buf, hylayers.LinkTypeUSBLinux)
	require.NoError(t, err)
	r := usbmonRecord{in: true, transfer: usbTransferBulk, device: 3, payload: []byte{0x00, 0x04, 0xaa}}.bytes(usbmonHeaderSize)
	require.NoError(t, w.WritePacket(gopacket.CaptureInfo{Timestamp: time.Unix(1, 0), CaptureLength: len(r), Length: len(r)}, r))
	require.NoError(t, w.Flush())

	path := filepath.Join(t.TempDir(), "capture.pcapng")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))

	src, err := OpenFile(path, Options{BulkOnly: true})
	require.NoError(t, err)
	defer src.Close()

	tr, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, DeviceToHost, tr.Direction)
	assert.Equal(t, []byte{0x00, 0x04, 0xaa}, tr.Data)

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestUnknownLinkType(t *testing.T) {
	_, err := NewReaderSource(writePcap(t, layers.LinkTypeEthernet), Options{})
	var unknown ErrUnknownLinkType
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, layers.LinkTypeEthernet, unknown.LinkType)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.pcap"), Options{})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSliceSource(t *testing.T) {
	a := &Transfer{Direction: HostToDevice, Data: []byte{1}}
	b := &Transfer{Direction: DeviceToHost, Data: []byte{2}}
	src := NewSliceSource(a, &Transfer{}, nil, b)

	transfers, err := ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, []*Transfer{a, b}, transfers)

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDirection(t *testing.T) {
	assert.Equal(t, ">", HostToDevice.Symbol())
	assert.Equal(t, "<", DeviceToHost.Symbol())
	assert.Equal(t, "host-to-device", HostToDevice.String())
	assert.Equal(t, "device-to-host", DeviceToHost.String())
}
