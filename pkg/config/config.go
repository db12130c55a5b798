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

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// CaptureConfig selects which USB records of a capture file become transfers
type CaptureConfig struct {
	BulkOnly bool `json:"bulkOnly"`
	// Device is the USB device address to keep, 0 keeps all devices
	Device uint16 `json:"device,omitempty"`
}

type ApiConfig struct {
	Address string `json:"address,omitempty"`
	Port    int    `json:"port,omitempty"`
}

type ReportConfig struct {
	NoDump bool `json:"noDump"`
	Color  bool `json:"color"`
	// Fill is the byte used for gaps when an image is flattened
	Fill uint8 `json:"fill"`
}

type Config struct {
	LogLevel       string `json:"logLevel,omitempty"`
	DBPath         string `json:"dbPath,omitempty"`
	*CaptureConfig `json:"capture,omitempty"`
	*ApiConfig     `json:"api,omitempty"`
	*ReportConfig  `json:"report,omitempty"`
	filepath       string
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return os.WriteFile(c.filepath, data, 0644)
}

func (c *Config) LoadConfig() error {
	data, err := os.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	c.fillDefaults()
	return nil
}

// fillDefaults restores sections the file sets to null
func (c *Config) fillDefaults() {
	defaults := NewDefaultConfig()
	if c.CaptureConfig == nil {
		c.CaptureConfig = defaults.CaptureConfig
	}
	if c.ApiConfig == nil {
		c.ApiConfig = defaults.ApiConfig
	}
	if c.ReportConfig == nil {
		c.ReportConfig = defaults.ReportConfig
	}
}

// Load reads the config file if there is one. A missing file leaves the defaults untouched.
func (c *Config) Load() error {
	err := c.LoadConfig()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	return string(data)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return home
}

func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	return filepath.Join(homeDir(), ConfigDir, DBFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		DBPath:   DefaultDBPath(),
		CaptureConfig: &CaptureConfig{
			BulkOnly: DefaultBulkOnly,
		},
		ApiConfig: &ApiConfig{
			Address: DefaultApiAddress,
			Port:    DefaultApiPort,
		},
		ReportConfig: &ReportConfig{
			Fill: DefaultFill,
		},
		filepath: DefaultConfigPath(),
	}
}
