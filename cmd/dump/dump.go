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

package dump

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/reveng/go-hycap/pkg/cmd"
	"github.com/reveng/go-hycap/pkg/command"
	"github.com/reveng/go-hycap/pkg/config"
)

type dumpFunc func(out io.Writer, path string, cfg *config.Config) error

func NewCommand(cfg *config.Config) *cobra.Command {
	captureFlags := &cmd.CaptureFlags{}
	reportFlags := &cmd.ReportFlags{}
	c := &cobra.Command{
		Use:   "dump",
		Short: "Print the transfers of a USB capture",
	}

	newSubCommand := func(use, short string, f dumpFunc) *cobra.Command {
		return &cobra.Command{
			Use:   use + " CAPTURE",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				captureFlags.Apply(c.Flags(), cfg)
				reportFlags.Apply(c.Flags(), cfg)
				return f(c.OutOrStdout(), args[0], cfg)
			},
		}
	}
	c.AddCommand(newSubCommand("raw", "Hex dump of every data transfer", command.DumpRaw))
	c.AddCommand(newSubCommand("level0", "Level 0 headers and their payload", command.DumpLevel0))
	c.AddCommand(newSubCommand("payload", "All decoded layers with read/write checksums", command.DumpPayload))
	c.AddCommand(newSubCommand("crc", "CSV of write response checksums", command.DumpChecksums))

	captureFlags.AddFlags(c.PersistentFlags())
	reportFlags.AddFlags(c.PersistentFlags())
	return c
}
