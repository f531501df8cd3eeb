// Copyright 2016 TiKV Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package typeutil

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const _uint64Len = 8

// Uint64ToBytes converts v to an 8-byte big-endian slice.
func Uint64ToBytes(v uint64) []byte {
	b := make([]byte, _uint64Len)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// BytesToUint64 converts an 8-byte big-endian slice to a uint64.
func BytesToUint64(b []byte) (uint64, error) {
	if len(b) != _uint64Len {
		return 0, errors.Errorf("invalid data, expected 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// Int64ToBytes converts v to an 8-byte big-endian slice.
// Negative values round-trip through their two's complement form.
func Int64ToBytes(v int64) []byte {
	return Uint64ToBytes(uint64(v))
}

// PutInt64 writes v into b, which must be at least 8 bytes long.
func PutInt64(b []byte, v int64) {
	binary.BigEndian.PutUint64(b, uint64(v))
}

// BytesToInt64 converts an 8-byte big-endian slice to an int64.
func BytesToInt64(b []byte) (int64, error) {
	v, err := BytesToUint64(b)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}
