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

// Package id issues globally unique integer identifiers while minimizing
// round trips to a slow authoritative counter (see package source). Each
// fetch reserves a whole block of identifiers which is then served from
// memory.
package id

import (
	"context"

	"github.com/pkg/errors"

	"github.com/AutoMQ/idalloc/pkg/numeric"
)

const (
	_defaultSubPoolSize int64 = 5000
)

var (
	// ErrInvalidIncrementSize is returned when constructing an allocator with an increment size below 1.
	ErrInvalidIncrementSize = errors.New("increment size cannot be less than 1")

	// ErrNotInitialized is returned by LastSourceValue before any successful no-tenant allocation.
	ErrNotInitialized = errors.New("no value fetched from the source yet")
)

// Allocator is the allocator to generate unique IDs.
type Allocator interface {
	// Alloc allocates the next identifier for the given tenant.
	// An empty tenant targets the shared, no-tenant partition.
	Alloc(ctx context.Context, tenant string) (numeric.Value, error)

	// LastSourceValue returns the raw value most recently fetched from the
	// source for the no-tenant partition. It fails with ErrNotInitialized
	// if that partition has never been refilled.
	LastSourceValue() (numeric.Value, error)
}
