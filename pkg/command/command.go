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

package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/reveng/go-hycap/pkg/capture"
	"github.com/reveng/go-hycap/pkg/codeplug"
	"github.com/reveng/go-hycap/pkg/config"
	"github.com/reveng/go-hycap/pkg/frame"
	"github.com/reveng/go-hycap/pkg/log"
	"github.com/reveng/go-hycap/pkg/report"
	"github.com/reveng/go-hycap/pkg/srv"
)

func captureOptions(cfg *config.Config) capture.Options {
	return capture.Options{
		BulkOnly: cfg.CaptureConfig.BulkOnly,
		Device:   cfg.CaptureConfig.Device,
	}
}

func printer(out io.Writer, cfg *config.Config) *report.Printer {
	return report.NewPrinter(out, report.Options{
		NoDump: cfg.ReportConfig.NoDump,
		Color:  cfg.ReportConfig.Color,
	})
}

// LoadTransfers reads all data transfers of a capture file
func LoadTransfers(path string, cfg *config.Config) ([]*capture.Transfer, error) {
	src, err := capture.OpenFile(path, captureOptions(cfg))
	if err != nil {
		return nil, err
	}
	defer src.Close()
	transfers, err := capture.ReadAll(src)
	if err != nil {
		return nil, err
	}
	log.Info("Loaded transfers: %s count: %d", path, len(transfers))
	return transfers, nil
}

// LoadFrames reads and decodes all data transfers of a capture file
func LoadFrames(path string, cfg *config.Config) ([]*frame.Frame, error) {
	transfers, err := LoadTransfers(path, cfg)
	if err != nil {
		return nil, err
	}
	return frame.ReadAll(capture.NewSliceSource(transfers...))
}

func DumpRaw(out io.Writer, path string, cfg *config.Config) error {
	transfers, err := LoadTransfers(path, cfg)
	if err != nil {
		return err
	}
	printer(out, cfg).Raw(path, transfers)
	return nil
}

func DumpLevel0(out io.Writer, path string, cfg *config.Config) error {
	frames, err := LoadFrames(path, cfg)
	if err != nil {
		return err
	}
	printer(out, cfg).Level0(frames)
	return nil
}

func DumpPayload(out io.Writer, path string, cfg *config.Config) error {
	frames, err := LoadFrames(path, cfg)
	if err != nil {
		return err
	}
	printer(out, cfg).Payload(frames)
	return nil
}

func DumpChecksums(out io.Writer, path string, cfg *config.Config) error {
	frames, err := LoadFrames(path, cfg)
	if err != nil {
		return err
	}
	return report.ChecksumCSV(out, frames)
}

// Codeplug reassembles one image of a capture file and prints its ranges.
// A non empty storeName also saves the image into the image database.
func Codeplug(out io.Writer, mode codeplug.Mode, path, storeName string, cfg *config.Config) ([]*codeplug.Range, error) {
	frames, err := LoadFrames(path, cfg)
	if err != nil {
		return nil, err
	}
	ranges := codeplug.Extract(mode, frames)
	log.Info("Reassembled %s image: ranges: %d bytes: %d", mode, len(ranges), codeplug.Size(ranges))
	printer(out, cfg).Ranges(ranges)

	if storeName == "" {
		return ranges, nil
	}
	err = withStore(cfg, func(store *codeplug.Store) error {
		return store.Put(storeName, ranges)
	})
	if err != nil {
		return nil, err
	}
	log.Info("Stored image: %s", storeName)
	return ranges, nil
}

// CodeplugSummary reassembles the read and the write image of a capture and
// prints a summary of both
func CodeplugSummary(out io.Writer, path string, cfg *config.Config) error {
	frames, err := LoadFrames(path, cfg)
	if err != nil {
		return err
	}
	read, write := codeplug.ExtractAll(frames)
	for _, s := range []*report.ImageSummary{
		report.Summarize(codeplug.ReadMode.String(), read),
		report.Summarize(codeplug.WriteMode.String(), write),
	} {
		fmt.Fprintln(out, "---")
		if err := s.WriteYAML(out); err != nil {
			return err
		}
	}
	return nil
}

func withStore(cfg *config.Config, f func(store *codeplug.Store) error) error {
	store, err := codeplug.OpenStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return f(store)
}

func ListImages(cfg *config.Config) ([]string, error) {
	var names []string
	err := withStore(cfg, func(store *codeplug.Store) error {
		var err error
		names, err = store.List()
		return err
	})
	return names, err
}

func GetImage(name string, cfg *config.Config) ([]*codeplug.Range, error) {
	var ranges []*codeplug.Range
	err := withStore(cfg, func(store *codeplug.Store) error {
		var err error
		ranges, err = store.Get(name)
		return err
	})
	return ranges, err
}

func DeleteImage(name string, cfg *config.Config) error {
	return withStore(cfg, func(store *codeplug.Store) error {
		return store.Delete(name)
	})
}

// WriteBinary writes a flattened image to a file
func WriteBinary(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}

// StartApiServer serves the image database until SIGINT or SIGTERM
func StartApiServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := codeplug.OpenStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	s, err := srv.NewApiServer(ctx, cfg, store)
	if err != nil {
		return err
	}
	return s.Run()
}
