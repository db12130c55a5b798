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
	"io"
	"time"
)

// Direction of a USB transfer as seen from the host
type Direction uint8

const (
	HostToDevice Direction = iota
	DeviceToHost
)

func (d Direction) String() string {
	if d == DeviceToHost {
		return "device-to-host"
	}
	return "host-to-device"
}

// Symbol is the one character marker used in listings
func (d Direction) Symbol() string {
	if d == DeviceToHost {
		return "<"
	}
	return ">"
}

// Transfer is one data carrying USB transfer. Data is never empty.
type Transfer struct {
	Direction Direction
	Data      []byte
	Timestamp time.Time
	Device    uint16
	Endpoint  uint8
	Bulk      bool
}

// Source yields transfers in the order they were captured.
// Next returns io.EOF after the last transfer.
type Source interface {
	Next() (*Transfer, error)
}

// SliceSource replays transfers that are already in memory
type SliceSource struct {
	transfers []*Transfer
	pos       int
}

var _ Source = &SliceSource{}

func NewSliceSource(transfers ...*Transfer) *SliceSource {
	return &SliceSource{transfers: transfers}
}

func (s *SliceSource) Next() (*Transfer, error) {
	for s.pos < len(s.transfers) {
		t := s.transfers[s.pos]
		s.pos++
		if t != nil && len(t.Data) > 0 {
			return t, nil
		}
	}
	return nil, io.EOF
}

// ReadAll drains the source
func ReadAll(src Source) ([]*Transfer, error) {
	var transfers []*Transfer
	for {
		t, err := src.Next()
		if err == io.EOF {
			return transfers, nil
		}
		if err != nil {
			return transfers, err
		}
		transfers = append(transfers, t)
	}
}
