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
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/reveng/go-hycap/pkg/codeplug"
	"github.com/reveng/go-hycap/pkg/config"
	"github.com/reveng/go-hycap/pkg/log"
)

const (
	// ImageBaseHeader carries the address of the first byte of a flattened image
	ImageBaseHeader = "X-Image-Base"
	shutdownTimeout = 5 * time.Second
)

// ImageRange is one reassembled range. Start is hexadecimal, Data is hex encoded.
type ImageRange struct {
	Start  string `json:"start"`
	Length int    `json:"length"`
	Data   string `json:"data"`
}

func NewImageRange(r *codeplug.Range) *ImageRange {
	return &ImageRange{
		Start:  fmt.Sprintf("0x%08x", r.Start),
		Length: len(r.Data),
		Data:   hex.EncodeToString(r.Data),
	}
}

// Range converts the JSON form back
func (ir *ImageRange) Range() (*codeplug.Range, error) {
	start, err := strconv.ParseUint(ir.Start, 0, 32)
	if err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(ir.Data)
	if err != nil {
		return nil, err
	}
	if len(data) != ir.Length {
		return nil, ErrRangeLength{Start: ir.Start, Length: ir.Length, Data: len(data)}
	}
	return &codeplug.Range{Start: uint32(start), Data: data}, nil
}

// ImageStore is the read side of codeplug.Store
type ImageStore interface {
	List() ([]string, error)
	Get(name string) ([]*codeplug.Range, error)
}

var _ ImageStore = &codeplug.Store{}

// ApiServer exposes stored images read-only
type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	store ImageStore
}

func NewApiServer(ctx context.Context, cfg *config.Config, store ImageStore) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s port: %d", cfg.ApiConfig.Address, cfg.ApiConfig.Port)

	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		store:   store,
	}
	s.configureRouter()
	return s, nil
}

// Handler is the router wrapped into the access log
func (s *ApiServer) Handler() http.Handler {
	return handlers.LoggingHandler(log.Writer(), s.Router)
}

// Run serves until the context is done
func (s *ApiServer) Run() error {
	addr := fmt.Sprintf("%s:%d", s.ApiConfig.Address, s.ApiConfig.Port)
	log.Info("Starting API server: address: %s", addr)
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    addr,
	}

	go func() {
		<-s.Context.Done()
		log.Info("Stopping API server: address: %s", addr)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Error("Error while stopping API server: %s", err)
		}
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/images", s.handleImageList()).Methods("GET")
	subRouter.HandleFunc("/images/{name}", s.handleImageGet()).Methods("GET")
	subRouter.HandleFunc("/images/{name}/bin", s.handleImageBinary()).Methods("GET")
}

func (s *ApiServer) ranges(w http.ResponseWriter, name string) ([]*codeplug.Range, bool) {
	ranges, err := s.store.Get(name)
	var notFound codeplug.ErrImageNotFound
	if errors.As(err, &notFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return ranges, true
}

func (s *ApiServer) handleImageList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling image list request")
		names, err := s.store.List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(names)
	}
}

func (s *ApiServer) handleImageGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling image request: name: %s", vars["name"])

		ranges, ok := s.ranges(w, vars["name"])
		if !ok {
			return
		}
		imageRanges := []*ImageRange{}
		for _, rg := range ranges {
			imageRanges = append(imageRanges, NewImageRange(rg))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(imageRanges)
	}
}

func (s *ApiServer) handleImageBinary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling image binary request: name: %s fill: %s", vars["name"], r.URL.Query().Get("fill"))

		fill := s.ReportConfig.Fill
		if v := r.URL.Query().Get("fill"); v != "" {
			parsed, err := strconv.ParseUint(v, 0, 8)
			if err != nil {
				http.Error(w, ErrBadFill{Value: v}.Error(), http.StatusBadRequest)
				return
			}
			fill = uint8(parsed)
		}

		ranges, ok := s.ranges(w, vars["name"])
		if !ok {
			return
		}
		base, image, err := codeplug.Flatten(ranges, fill)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set(ImageBaseHeader, fmt.Sprintf("0x%08x", base))
		w.Write(image)
	}
}
