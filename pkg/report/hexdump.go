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
	"strings"
)

const bytesPerLine = 16

// HexDump renders data as lines of 16 bytes: prefix, address, hex bytes and
// printable characters. Addresses start at addr. The result has no trailing newline.
func HexDump(data []byte, prefix string, addr uint32) string {
	var sb strings.Builder
	for offset := 0; offset < len(data); offset += bytesPerLine {
		end := offset + bytesPerLine
		if end > len(data) {
			end = len(data)
		}
		line := data[offset:end]

		if offset > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s%08X ", prefix, addr+uint32(offset))
		for i, b := range line {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%02x", b)
		}
		sb.WriteString(strings.Repeat("   ", bytesPerLine-len(line)))
		sb.WriteString(" | ")
		for _, b := range line {
			if b >= 0x20 && b < 0x7f {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
	}
	return sb.String()
}
