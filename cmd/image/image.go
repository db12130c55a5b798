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

package image

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reveng/go-hycap/pkg/cmd"
	"github.com/reveng/go-hycap/pkg/codeplug"
	"github.com/reveng/go-hycap/pkg/command"
	"github.com/reveng/go-hycap/pkg/config"
	"github.com/reveng/go-hycap/pkg/log"
	"github.com/reveng/go-hycap/pkg/report"
)

const (
	OutOptionName  = "out"
	DumpOptionName = "dump"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	c := &cobra.Command{
		Use:   "image",
		Short: "Work with images saved in the image database",
	}
	c.AddCommand(NewListCommand(cfg))
	c.AddCommand(NewShowCommand(cfg))
	c.AddCommand(NewExportCommand(cfg))
	c.AddCommand(NewRemoveCommand(cfg))
	c.AddCommand(NewRemoteCommand(cfg))
	return c
}

func NewListCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored images",
		RunE: func(c *cobra.Command, args []string) error {
			names, err := command.ListImages(cfg)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(c.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func show(c *cobra.Command, name string, ranges []*codeplug.Range, dump bool) error {
	if err := report.Summarize(name, ranges).WriteYAML(c.OutOrStdout()); err != nil {
		return err
	}
	if dump {
		report.NewPrinter(c.OutOrStdout(), report.Options{}).Ranges(ranges)
	}
	return nil
}

func NewShowCommand(cfg *config.Config) *cobra.Command {
	var dump bool
	c := &cobra.Command{
		Use:   "show NAME",
		Short: "Print the ranges of a stored image",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ranges, err := command.GetImage(args[0], cfg)
			if err != nil {
				return err
			}
			return show(c, args[0], ranges, dump)
		},
	}
	c.Flags().BoolVar(&dump, DumpOptionName, false, "Dump the data of every range")
	return c
}

func export(name, out string, ranges []*codeplug.Range, fill uint8) error {
	base, image, err := codeplug.Flatten(ranges, fill)
	if err != nil {
		return err
	}
	log.Info("Writing image: %s name: %s base: 0x%08x bytes: %d", out, name, base, len(image))
	return command.WriteBinary(out, image)
}

func NewExportCommand(cfg *config.Config) *cobra.Command {
	var out string
	fillFlag := &cmd.FillFlag{}
	c := &cobra.Command{
		Use:   "export NAME",
		Short: "Write a stored image as a flat binary file",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			fill, err := fillFlag.Value(cfg)
			if err != nil {
				return err
			}
			ranges, err := command.GetImage(args[0], cfg)
			if err != nil {
				return err
			}
			return export(args[0], out, ranges, fill)
		},
	}
	fillFlag.AddFlags(c.Flags())
	c.Flags().StringVar(&out, OutOptionName, "", "Output file")
	c.MarkFlagRequired(OutOptionName)
	return c
}

func NewRemoveCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME",
		Short: "Delete a stored image",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if err := command.DeleteImage(args[0], cfg); err != nil {
				return err
			}
			log.Info("Deleted image: %s", args[0])
			return nil
		},
	}
}
