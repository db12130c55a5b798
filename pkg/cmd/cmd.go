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

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/reveng/go-hycap/pkg/config"
)

// Helpers shared by the cobra commands. Flags override configuration values
// only when they are given explicitly.

const (
	BulkOnlyOptionName = "bulk-only"
	DeviceOptionName   = "device"
	NoDumpOptionName   = "nodump"
	ColorOptionName    = "color"
	FillOptionName     = "fill"
)

// CaptureFlags select the USB records of a capture file
type CaptureFlags struct {
	BulkOnly bool
	Device   uint16
}

func (f *CaptureFlags) AddFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&f.BulkOnly, BulkOnlyOptionName, config.DefaultBulkOnly, "Keep only bulk transfers")
	flags.Uint16Var(&f.Device, DeviceOptionName, 0, "USB device address to keep. 0 keeps all devices")
}

func (f *CaptureFlags) Apply(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed(BulkOnlyOptionName) {
		cfg.CaptureConfig.BulkOnly = f.BulkOnly
	}
	if flags.Changed(DeviceOptionName) {
		cfg.CaptureConfig.Device = f.Device
	}
}

// ReportFlags control text listings
type ReportFlags struct {
	NoDump bool
	Color  bool
}

func (f *ReportFlags) AddFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&f.NoDump, NoDumpOptionName, false, "Do not dump data")
	flags.BoolVar(&f.Color, ColorOptionName, false, "Mark checksum errors with colors")
}

func (f *ReportFlags) Apply(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed(NoDumpOptionName) {
		cfg.ReportConfig.NoDump = f.NoDump
	}
	if flags.Changed(ColorOptionName) {
		cfg.ReportConfig.Color = f.Color
	}
}

// FillFlag is the gap byte of exported images, e.g. 0xff
type FillFlag struct {
	Fill string
}

func (f *FillFlag) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.Fill, FillOptionName, "", fmt.Sprintf("Byte used for gaps. E.g. 0x%02x", config.DefaultFill))
}

// Value returns the fill byte, the configured one when the flag is not given
func (f *FillFlag) Value(cfg *config.Config) (uint8, error) {
	if f.Fill == "" {
		return cfg.ReportConfig.Fill, nil
	}
	v, err := strconv.ParseUint(f.Fill, 0, 8)
	if err != nil {
		return 0, ErrBadFill{Value: f.Fill}
	}
	return uint8(v), nil
}

// ErrBadFill returned when the fill flag is not a byte value
type ErrBadFill struct {
	Value string
}

func (e ErrBadFill) Error() string {
	return fmt.Sprintf("Wrong fill value %q. Must be a byte, e.g. 0xff", e.Value)
}
