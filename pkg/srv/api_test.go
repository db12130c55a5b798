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

package srv

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveng/go-hycap/pkg/codeplug"
	"github.com/reveng/go-hycap/pkg/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := codeplug.OpenStore(filepath.Join(t.TempDir(), "images.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Put("read", []*codeplug.Range{
		{Start: 0x1000, Data: []byte{0x01, 0x02}},
		{Start: 0x1004, Data: []byte{0x03}},
	}))

	s, err := NewApiServer(context.Background(), config.NewDefaultConfig(), store)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestImageList(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/api/images")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var names []string
	require.NoError(t, json.Unmarshal(body, &names))
	assert.Equal(t, []string{"read"}, names)
}

func TestImageGet(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/api/images/read")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ranges []*ImageRange
	require.NoError(t, json.Unmarshal(body, &ranges))
	require.Len(t, ranges, 2)
	assert.Equal(t, &ImageRange{Start: "0x00001000", Length: 2, Data: "0102"}, ranges[0])

	r, err := ranges[1].Range()
	require.NoError(t, err)
	assert.Equal(t, &codeplug.Range{Start: 0x1004, Data: []byte{0x03}}, r)
}

func TestImageNotFound(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := get(t, ts.URL+"/api/images/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = get(t, ts.URL+"/api/images/missing/bin")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImageBinary(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/api/images/read/bin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0x00001000", resp.Header.Get(ImageBaseHeader))
	assert.Equal(t, []byte{0x01, 0x02, 0xff, 0xff, 0x03}, body)

	resp, body = get(t, ts.URL+"/api/images/read/bin?fill=0x00")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte{0x01, 0x02, 0x00, 0x00, 0x03}, body)

	resp, _ = get(t, ts.URL+"/api/images/read/bin?fill=300")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImageRangeLength(t *testing.T) {
	_, err := (&ImageRange{Start: "0x10", Length: 3, Data: "0102"}).Range()
	assert.Equal(t, ErrRangeLength{Start: "0x10", Length: 3, Data: 2}, err)
	_, err = (&ImageRange{Start: "zz", Data: ""}).Range()
	assert.Error(t, err)
}
