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
	"github.com/reveng/go-hycap/pkg/layers"
	"github.com/reveng/go-hycap/pkg/log"
)

// Alignment is the record size the device streams memory in
const Alignment = 16

// Operation is one memory read or write as seen by the reassembler
type Operation struct {
	Address uint32
	Length  int
	Content []byte
}

func NewOperation(rw *layers.ReadWriteLayer) Operation {
	return Operation{
		Address: rw.Address,
		Length:  int(rw.Length),
		Content: rw.Content,
	}
}

// Range is a contiguous run of memory starting at Start
type Range struct {
	Start uint32
	Data  []byte
}

func (r *Range) End() uint32 {
	return r.Start + uint32(len(r.Data))
}

// Chunk is a piece of memory produced by one reassembly step.
// Break marks a discontinuity right before the chunk.
type Chunk struct {
	Address uint32
	Data    []byte
	Break   bool
}

// State is the reassembly state of one run. The zero value is the empty state.
type State struct {
	current  uint32
	valid    bool
	leftover []byte
}

func Empty() State {
	return State{}
}

// Address is the address the next operation of the run is expected at
func (s State) Address() (uint32, bool) {
	return s.current, s.valid
}

// Leftover holds the unaligned tail carried into the next operation
func (s State) Leftover() []byte {
	return s.leftover
}

// Step feeds one operation into the run. A leftover carried from the previous
// operation is prepended when the operation continues right behind it. Otherwise
// the leftover is flushed at the previous end of the run and the operation
// starts a new range. In ReadMode the unaligned tail of the content becomes the
// new leftover, WriteMode passes the content through as is.
func Step(mode Mode, st State, op Operation) (State, []Chunk) {
	var chunks []Chunk
	address := op.Address
	length := op.Length
	content := op.Content
	discontinuity := false

	if len(st.leftover) > 0 {
		if st.current+uint32(len(st.leftover)) == op.Address {
			merged := make([]byte, 0, len(st.leftover)+len(content))
			merged = append(merged, st.leftover...)
			content = append(merged, content...)
			address = st.current
			length += len(st.leftover)
		} else {
			// The leftover stays with the run it came from and is not prepended
			// to the operation behind the gap.
			log.Debug("Discontinuity: expected: %08x got: %08x flushing %d leftover bytes",
				st.current+uint32(len(st.leftover)), op.Address, len(st.leftover))
			chunks = append(chunks, Chunk{Address: st.current, Data: st.leftover})
			discontinuity = true
		}
	} else if st.valid && st.current != op.Address {
		log.Debug("Discontinuity: expected: %08x got: %08x", st.current, op.Address)
		discontinuity = true
	}

	var leftover []byte
	if mode == ReadMode {
		if rem := len(content) % Alignment; rem != 0 {
			leftover = append([]byte(nil), content[len(content)-rem:]...)
			content = content[:len(content)-rem]
			length -= rem
		}
	}
	if length < 0 {
		length = 0
	}

	chunks = append(chunks, Chunk{Address: address, Data: content, Break: discontinuity})
	return State{
		current:  address + uint32(length),
		valid:    true,
		leftover: leftover,
	}, chunks
}

// Finish flushes the leftover of a run at its current address
func Finish(st State) []Chunk {
	if len(st.leftover) == 0 {
		return nil
	}
	return []Chunk{{Address: st.current, Data: st.leftover}}
}

// Reassembler collects the chunks of one run into ranges.
// Ranges are kept in the order they were observed.
type Reassembler struct {
	mode         Mode
	state        State
	ranges       []*Range
	pendingBreak bool
	ops          int
}

func NewReassembler(mode Mode) *Reassembler {
	return &Reassembler{
		mode:  mode,
		state: Empty(),
	}
}

func (r *Reassembler) State() State {
	return r.state
}

func (r *Reassembler) Push(op Operation) {
	var chunks []Chunk
	r.state, chunks = Step(r.mode, r.state, op)
	r.ops++
	for _, c := range chunks {
		r.add(c)
	}
}

// Close flushes the leftover and returns the ranges of the run
func (r *Reassembler) Close() []*Range {
	for _, c := range Finish(r.state) {
		r.add(c)
	}
	r.state = Empty()
	log.Debug("Reassembled %s run: operations: %d ranges: %d", r.mode, r.ops, len(r.ranges))
	return r.ranges
}

func (r *Reassembler) add(c Chunk) {
	if len(c.Data) == 0 {
		if c.Break {
			r.pendingBreak = true
		}
		return
	}
	discontinuity := c.Break || r.pendingBreak
	r.pendingBreak = false

	if n := len(r.ranges); n > 0 && !discontinuity && r.ranges[n-1].End() == c.Address {
		last := r.ranges[n-1]
		last.Data = append(last.Data, c.Data...)
		return
	}
	r.ranges = append(r.ranges, &Range{
		Start: c.Address,
		Data:  append([]byte(nil), c.Data...),
	})
}
