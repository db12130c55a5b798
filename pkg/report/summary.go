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

	"sigs.k8s.io/yaml"

	"github.com/reveng/go-hycap/pkg/codeplug"
)

type RangeSummary struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Length int    `json:"length"`
}

type ImageSummary struct {
	Name   string         `json:"name"`
	Bytes  int            `json:"bytes"`
	Ranges []RangeSummary `json:"ranges"`
}

func Summarize(name string, ranges []*codeplug.Range) *ImageSummary {
	s := &ImageSummary{
		Name:   name,
		Bytes:  codeplug.Size(ranges),
		Ranges: []RangeSummary{},
	}
	for _, r := range ranges {
		s.Ranges = append(s.Ranges, RangeSummary{
			Start:  fmt.Sprintf("0x%08x", r.Start),
			End:    fmt.Sprintf("0x%08x", uint64(r.Start)+uint64(len(r.Data))),
			Length: len(r.Data),
		})
	}
	return s
}

// WriteYAML renders the summary the same way the configuration is rendered
func (s *ImageSummary) WriteYAML(out io.Writer) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
