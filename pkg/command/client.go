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
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/imroc/req"

	"github.com/reveng/go-hycap/pkg/codeplug"
	"github.com/reveng/go-hycap/pkg/config"
	"github.com/reveng/go-hycap/pkg/srv"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s:%d/api", cfg.ApiConfig.Address, cfg.ApiConfig.Port),
	}
}

func (c *ApiClient) imageUrl(name string) string {
	return fmt.Sprintf("%s/images/%s", c.ApiPrefix, url.PathEscape(name))
}

// ListImages returns the names of the images stored by the server
func (c *ApiClient) ListImages() ([]string, error) {
	r, err := req.Get(fmt.Sprintf("%s/images", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	var names []string
	err = r.ToJSON(&names)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// GetImage returns the ranges of an image
func (c *ApiClient) GetImage(name string) ([]*codeplug.Range, error) {
	r, err := req.Get(c.imageUrl(name))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	var imageRanges []*srv.ImageRange
	err = r.ToJSON(&imageRanges)
	if err != nil {
		return nil, err
	}
	ranges := []*codeplug.Range{}
	for _, ir := range imageRanges {
		rg, err := ir.Range()
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, rg)
	}
	return ranges, nil
}

// GetImageBinary returns the flattened image and the address of its first byte
func (c *ApiClient) GetImageBinary(name string, fill uint8) (uint32, []byte, error) {
	r, err := req.Get(fmt.Sprintf("%s/bin", c.imageUrl(name)), req.QueryParam{"fill": fmt.Sprintf("0x%02x", fill)})
	if err != nil {
		return 0, nil, err
	}
	if r.Response().StatusCode != 200 {
		return 0, nil, errors.New(r.Response().Status)
	}
	base, err := strconv.ParseUint(r.Response().Header.Get(srv.ImageBaseHeader), 0, 32)
	if err != nil {
		return 0, nil, err
	}
	data, err := r.ToBytes()
	if err != nil {
		return 0, nil, err
	}
	return uint32(base), data, nil
}
