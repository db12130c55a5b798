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

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/reveng/go-hycap/pkg/capture"
	"github.com/reveng/go-hycap/pkg/codeplug"
	"github.com/reveng/go-hycap/pkg/frame"
	"github.com/reveng/go-hycap/pkg/layers"
	"github.com/reveng/go-hycap/pkg/log"
)

const (
	transferSeparatorWidth = 80
	rangeSeparatorWidth    = 75
	colorError             = "\x1b[1;31m"
	colorReset             = "\x1b[0m"
)

// Options of the text listings
type Options struct {
	// NoDump hides data dumps
	NoDump bool
	// Color marks checksum errors with ANSI colors
	Color bool
}

// Printer renders transfers, frames and ranges as text listings
type Printer struct {
	out io.Writer
	Options
}

func NewPrinter(out io.Writer, opts Options) *Printer {
	return &Printer{
		out:     out,
		Options: opts,
	}
}

func (p *Printer) println(a ...interface{}) {
	fmt.Fprintln(p.out, a...)
}

func (p *Printer) printf(format string, a ...interface{}) {
	fmt.Fprintf(p.out, format, a...)
}

func (p *Printer) dump(data []byte, prefix string, addr uint32) {
	if len(data) == 0 {
		return
	}
	p.println(HexDump(data, prefix, addr))
}

func (p *Printer) separator(dir capture.Direction) {
	if dir == capture.HostToDevice {
		p.println(strings.Repeat("-", transferSeparatorWidth))
	}
}

// Raw dumps every transfer with its direction marker
func (p *Printer) Raw(name string, transfers []*capture.Transfer) {
	p.println("#")
	p.printf("# Serial data from '%s'\n", name)
	p.println("# '>' means from host to device.")
	p.println("# '<' means from device to host.")
	p.println("#")
	for _, t := range transfers {
		p.separator(t.Direction)
		p.dump(t.Data, t.Direction.Symbol()+" | ", 0)
	}
}

func (p *Printer) level0Line(r *frame.Record) {
	p.printf("%s type=%s, len=%04X, flag=%02X, rcount=%04X:\n",
		r.Direction.Symbol(), r.CommandClass, r.DeclaredLength, r.Flag, r.ResponseCount)
}

func (p *Printer) dropped(f *frame.Frame) {
	p.printf("%s frame %d dropped: %s\n", f.Direction.Symbol(), f.Index, f.Err)
}

// Level0 lists the outer envelope of every frame followed by its payload
func (p *Printer) Level0(frames []*frame.Frame) {
	for _, f := range frames {
		p.separator(f.Direction)
		r, ok := f.Record()
		if !ok {
			p.dropped(f)
			continue
		}
		p.level0Line(r)
		p.dump(f.Layer0.LayerPayload(), "  | ", 0)
	}
}

func (p *Printer) checksum(body frame.ReadWriteBody) string {
	if body.ChecksumStatus == layers.ChecksumMatch {
		return fmt.Sprintf("%04X", body.Checksum)
	}
	if p.Color {
		return fmt.Sprintf("%s%04X %s%s", colorError, body.Checksum, body.ChecksumStatus, colorReset)
	}
	return fmt.Sprintf("%04X %s", body.Checksum, body.ChecksumStatus)
}

// Payload lists every decoded layer of every frame
func (p *Printer) Payload(frames []*frame.Frame) {
	p.println("#")
	p.println("#")
	for _, f := range frames {
		p.separator(f.Direction)
		r, ok := f.Record()
		if !ok {
			p.dropped(f)
			continue
		}
		p.level0Line(r)

		if e := r.Envelope; e != nil {
			p.printf("  | crc=%04X, seq=%02X, fixed=%02X, req=%02X, ukn2=%02X, payload len=%04X\n",
				e.Checksum, e.Sequence, e.SubFlag, uint8(e.Operation), e.Reserved, e.Length)
		}

		switch body := r.Body.(type) {
		case frame.ReadWriteBody:
			word := "from"
			if body.Operation == layers.OperationWrite {
				word = "to"
			}
			p.printf("  | %s %s=%08X, len=%04X, crc=%s\n", body.Operation, word, body.Address, body.Length, p.checksum(body))
			if !p.NoDump {
				p.dump(body.Content, "  |  | ", 0)
			}
		case frame.Plain:
			if r.Envelope != nil && !p.NoDump {
				p.dump(body.Payload, "  | ", 0)
			}
		}

		for _, finding := range r.Findings {
			if finding.Kind == frame.FindingChecksumMismatch {
				continue
			}
			p.printf("  ! %s\n", finding)
			log.Warning("Frame %d: %s", f.Index, finding)
		}
	}
}

// Ranges dumps reassembled memory, runs are separated by a line
func (p *Printer) Ranges(ranges []*codeplug.Range) {
	p.println("#")
	for i, r := range ranges {
		if i > 0 {
			p.println(strings.Repeat("-", rangeSeparatorWidth))
		}
		p.dump(r.Data, "", r.Start)
	}
}
