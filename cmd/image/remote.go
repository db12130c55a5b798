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
	"github.com/reveng/go-hycap/pkg/command"
	"github.com/reveng/go-hycap/pkg/config"
	"github.com/reveng/go-hycap/pkg/log"
)

const (
	AddressOptionName = "address"
	PortOptionName    = "port"
)

// NewRemoteCommand groups the image commands served by a running API server
func NewRemoteCommand(cfg *config.Config) *cobra.Command {
	var address string
	var port int
	c := &cobra.Command{
		Use:   "remote",
		Short: "Work with images of a running API server",
	}
	client := func() *command.ApiClient {
		if address != "" {
			cfg.ApiConfig.Address = address
		}
		if port != 0 {
			cfg.ApiConfig.Port = port
		}
		return command.NewApiClient(cfg)
	}

	c.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List images of the API server",
		RunE: func(c *cobra.Command, args []string) error {
			names, err := client().ListImages()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(c.OutOrStdout(), name)
			}
			return nil
		},
	})

	var dump bool
	showCmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Print the ranges of an image of the API server",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ranges, err := client().GetImage(args[0])
			if err != nil {
				return err
			}
			return show(c, args[0], ranges, dump)
		},
	}
	showCmd.Flags().BoolVar(&dump, DumpOptionName, false, "Dump the data of every range")
	c.AddCommand(showCmd)

	var out string
	fillFlag := &cmd.FillFlag{}
	exportCmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Download an image of the API server as a flat binary file",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			fill, err := fillFlag.Value(cfg)
			if err != nil {
				return err
			}
			base, image, err := client().GetImageBinary(args[0], fill)
			if err != nil {
				return err
			}
			log.Info("Writing image: %s name: %s base: 0x%08x bytes: %d", out, args[0], base, len(image))
			return command.WriteBinary(out, image)
		},
	}
	fillFlag.AddFlags(exportCmd.Flags())
	exportCmd.Flags().StringVar(&out, OutOptionName, "", "Output file")
	exportCmd.MarkFlagRequired(OutOptionName)
	c.AddCommand(exportCmd)

	c.PersistentFlags().StringVar(&address, AddressOptionName, "", fmt.Sprintf("API server address. E.g. %s", config.DefaultApiAddress))
	c.PersistentFlags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("API server port. E.g. %d", config.DefaultApiPort))
	return c
}
