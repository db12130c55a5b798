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
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/reveng/go-hycap/pkg/log"
)

const (
	BucketNamePrefix = "image_"
	openTimeout      = time.Second
)

// Store keeps reassembled images in a bbolt database, one bucket per image.
// Keys are big-endian sequence numbers so ranges come back in observation order,
// values are the big-endian start address followed by the data.
type Store struct {
	DB *bbolt.DB
}

func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("Error while opening image store %s: %w", path, err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func bucketName(name string) []byte {
	return []byte(fmt.Sprintf("%s%s", BucketNamePrefix, name))
}

func uint32ToByte(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// Put replaces the image with the given ranges
func (s *Store) Put(name string, ranges []*Range) error {
	log.Debug("Storing image: %s ranges: %d", name, len(ranges))
	return s.DB.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketName(name)) != nil {
			if err := tx.DeleteBucket(bucketName(name)); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(bucketName(name))
		if err != nil {
			return err
		}
		for i, r := range ranges {
			value := make([]byte, 4+len(r.Data))
			binary.BigEndian.PutUint32(value[0:4], r.Start)
			copy(value[4:], r.Data)
			if err := b.Put(uint32ToByte(uint32(i)), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns the ranges of an image in the order they were stored
func (s *Store) Get(name string) ([]*Range, error) {
	log.Debug("Getting image: %s", name)
	var ranges []*Range
	err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName(name))
		if b == nil {
			return ErrImageNotFound{Name: name}
		}
		return b.ForEach(func(k, v []byte) error {
			if len(v) < 4 {
				return ErrCorruptRecord{Name: name, Key: k}
			}
			ranges = append(ranges, &Range{
				Start: binary.BigEndian.Uint32(v[0:4]),
				// values are only valid inside the transaction
				Data: append([]byte(nil), v[4:]...),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return ranges, nil
}

// List returns the names of all stored images, sorted
func (s *Store) List() ([]string, error) {
	names := []string{}
	err := s.DB.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			if strings.HasPrefix(string(name), BucketNamePrefix) {
				names = append(names, strings.TrimPrefix(string(name), BucketNamePrefix))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (s *Store) Delete(name string) error {
	log.Debug("Deleting image: %s", name)
	return s.DB.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketName(name)) == nil {
			return ErrImageNotFound{Name: name}
		}
		return tx.DeleteBucket(bucketName(name))
	})
}
