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

package codeplug

import (
	"sync"

	"github.com/reveng/go-hycap/pkg/frame"
	"github.com/reveng/go-hycap/pkg/log"
)

// Mode selects the frames a run consumes and whether unaligned tails are carried
type Mode uint8

const (
	// ReadMode reassembles read responses
	ReadMode Mode = iota
	// WriteMode reassembles write requests
	WriteMode
)

func (m Mode) String() string {
	if m == WriteMode {
		return "write"
	}
	return "read"
}

// Kind is the frame kind consumed in this mode
func (m Mode) Kind() frame.Kind {
	if m == WriteMode {
		return frame.KindWriteRequest
	}
	return frame.KindReadResponse
}

// Extract runs one reassembly over the frames of the mode's kind in their order.
// Frames without a decoded read/write layer are skipped.
func Extract(mode Mode, frames []*frame.Frame) []*Range {
	r := NewReassembler(mode)
	for _, f := range frames {
		if f.Kind != mode.Kind() {
			continue
		}
		if f.ReadWrite == nil {
			log.Debug("Skipping %s frame %d without read/write layer", f.Kind, f.Index)
			continue
		}
		r.Push(NewOperation(f.ReadWrite))
	}
	return r.Close()
}

// ExtractAll runs the read and the write reassembly side by side.
// Each run owns its state.
func ExtractAll(frames []*frame.Frame) (read, write []*Range) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		read = Extract(ReadMode, frames)
	}()
	go func() {
		defer wg.Done()
		write = Extract(WriteMode, frames)
	}()
	wg.Wait()
	return read, write
}
