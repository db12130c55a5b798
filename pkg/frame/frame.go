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

package frame

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"

	"github.com/reveng/go-hycap/pkg/capture"
	"github.com/reveng/go-hycap/pkg/layers"
	"github.com/reveng/go-hycap/pkg/log"
)

// Frame is one transfer together with every layer that could be decoded from it.
// A layer that did not fit stops decoding, the layers before it stay available.
type Frame struct {
	Index int
	*capture.Transfer
	Layer0          *layers.Layer0Layer
	RequestResponse *layers.RequestResponseLayer
	ReadWrite       *layers.ReadWriteLayer
	Kind            Kind
	Findings        []Finding
	// Err is the error which stopped decoding
	Err error
}

// Dropped reports whether decoding stopped before the innermost layer
func (f *Frame) Dropped() bool {
	return f.Err != nil
}

var decodeOptions = gopacket.DecodeOptions{NoCopy: true}

// Decode runs a transfer through the Layer0, request/response and read/write
// layers. It never fails, problems end up in Err and Findings.
func Decode(index int, t *capture.Transfer) *Frame {
	f := &Frame{
		Index:    index,
		Transfer: t,
	}
	packet := gopacket.NewPacket(t.Data, layers.Layer0LayerType, decodeOptions)

	if l0, ok := packet.Layer(layers.Layer0LayerType).(*layers.Layer0Layer); ok {
		f.Layer0 = l0
	}
	if rr, ok := packet.Layer(layers.RequestResponseLayerType).(*layers.RequestResponseLayer); ok {
		f.RequestResponse = rr
		f.Kind = Classify(t.Direction, rr.Class, rr.Operation)
	}
	if rw, ok := packet.Layer(layers.ReadWriteRequestLayerType).(*layers.ReadWriteLayer); ok {
		f.ReadWrite = rw
	} else if rw, ok := packet.Layer(layers.ReadWriteResponseLayerType).(*layers.ReadWriteLayer); ok {
		f.ReadWrite = rw
	}

	if errLayer := packet.ErrorLayer(); errLayer != nil {
		f.Err = errLayer.Error()
		var tooShort layers.ErrTooShort
		if errors.As(f.Err, &tooShort) {
			f.Findings = append(f.Findings, Finding{
				Kind:   FindingTooShort,
				Layer:  tooShort.Layer,
				Detail: fmt.Sprintf("need %d bytes, got %d", tooShort.Need, tooShort.Got),
			})
		}
		log.Warning("Dropping frame %d %s: %s", index, t.Direction.Symbol(), f.Err)
	}

	if rw := f.ReadWrite; rw != nil {
		layer := rw.Shape.LayerName()
		if rw.ChecksumStatus == layers.ChecksumMismatch {
			f.Findings = append(f.Findings, Finding{
				Kind:   FindingChecksumMismatch,
				Layer:  layer,
				Detail: fmt.Sprintf("transmitted %04X computed %04X", f.RequestResponse.Checksum, rw.Checksum),
			})
		}
		if rw.LengthMismatch {
			f.Findings = append(f.Findings, Finding{
				Kind:  FindingLengthMismatch,
				Layer: layer,
				Detail: fmt.Sprintf("declared %d content %d",
					int(f.RequestResponse.Length)-rw.Shape.HeaderSize(), len(rw.Content)),
			})
		}
	}
	return f
}

// Decoder decodes the transfers of a source in capture order
type Decoder struct {
	src   capture.Source
	index int
}

func NewDecoder(src capture.Source) *Decoder {
	return &Decoder{src: src}
}

// Next returns io.EOF when the source is exhausted
func (d *Decoder) Next() (*Frame, error) {
	t, err := d.src.Next()
	if err != nil {
		return nil, err
	}
	f := Decode(d.index, t)
	d.index++
	return f, nil
}

// ReadAll decodes every transfer of the source
func ReadAll(src capture.Source) ([]*Frame, error) {
	d := NewDecoder(src)
	var frames []*Frame
	for {
		f, err := d.Next()
		if err == io.EOF {
			log.Debug("Decoded %d frames", len(frames))
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}
