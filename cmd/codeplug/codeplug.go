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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reveng/go-hycap/pkg/cmd"
	pkgcodeplug "github.com/reveng/go-hycap/pkg/codeplug"
	"github.com/reveng/go-hycap/pkg/command"
	"github.com/reveng/go-hycap/pkg/config"
	"github.com/reveng/go-hycap/pkg/log"
)

const (
	StoreOptionName = "store"
	OutOptionName   = "out"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var storeName, out string
	captureFlags := &cmd.CaptureFlags{}
	fillFlag := &cmd.FillFlag{}
	c := &cobra.Command{
		Use:   "codeplug",
		Short: "Reassemble the codeplug image read from or written to a radio",
	}

	newSubCommand := func(mode pkgcodeplug.Mode, short string) *cobra.Command {
		return &cobra.Command{
			Use:   fmt.Sprintf("%s CAPTURE", mode),
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				captureFlags.Apply(c.Flags(), cfg)
				fill, err := fillFlag.Value(cfg)
				if err != nil {
					return err
				}
				ranges, err := command.Codeplug(c.OutOrStdout(), mode, args[0], storeName, cfg)
				if err != nil {
					return err
				}
				if out == "" {
					return nil
				}
				base, image, err := pkgcodeplug.Flatten(ranges, fill)
				if err != nil {
					return err
				}
				log.Info("Writing image: %s base: 0x%08x bytes: %d", out, base, len(image))
				return command.WriteBinary(out, image)
			},
		}
	}
	c.AddCommand(newSubCommand(pkgcodeplug.ReadMode, "Reassemble the image from read responses"))
	c.AddCommand(newSubCommand(pkgcodeplug.WriteMode, "Reassemble the image from write requests"))
	c.AddCommand(&cobra.Command{
		Use:   "summary CAPTURE",
		Short: "Summarize the read and the write image of a capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			captureFlags.Apply(c.Flags(), cfg)
			return command.CodeplugSummary(c.OutOrStdout(), args[0], cfg)
		},
	})

	captureFlags.AddFlags(c.PersistentFlags())
	fillFlag.AddFlags(c.PersistentFlags())
	c.PersistentFlags().StringVar(&storeName, StoreOptionName, "", "Save the image into the image database under this name")
	c.PersistentFlags().StringVar(&out, OutOptionName, "", "Write the flattened image to this file")
	return c
}
