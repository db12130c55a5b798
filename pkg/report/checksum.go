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
	"encoding/csv"
	"io"
	"strconv"

	"github.com/reveng/go-hycap/pkg/frame"
)

var checksumHeader = []string{"#crc", "ukn1", "ukn2", "addr", "length"}

// ChecksumCSV writes the transmitted checksum of every write response together
// with the fields it may depend on, one row per response in decimal.
func ChecksumCSV(out io.Writer, frames []*frame.Frame) error {
	w := csv.NewWriter(out)
	if err := w.Write(checksumHeader); err != nil {
		return err
	}
	for _, f := range frames {
		if !f.IsWriteResponse() || f.ReadWrite == nil {
			continue
		}
		rr := f.RequestResponse
		row := []string{
			strconv.Itoa(int(rr.Checksum)),
			strconv.Itoa(int(rr.Sequence)),
			strconv.Itoa(int(rr.Reserved)),
			strconv.FormatUint(uint64(f.ReadWrite.Address), 10),
			strconv.Itoa(int(f.ReadWrite.Length)),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
