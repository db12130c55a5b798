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
	"fmt"

	"github.com/google/gopacket/layers"
)

// ErrUnknownLinkType returned when the capture file does not hold USB records
type ErrUnknownLinkType struct {
	LinkType layers.LinkType
}

func (e ErrUnknownLinkType) Error() string {
	return fmt.Sprintf("Unsupported capture link type: %d (%s). Expected usbmon or USBPcap", uint8(e.LinkType), e.LinkType)
}
