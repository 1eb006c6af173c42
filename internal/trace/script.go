// SPDX-License-Identifier: Apache-2.0

// Package trace parses allocation workloads written as YAML and replays them
// against a freelist.Allocator.
//
// A workload looks like this:
//
//	allocator: freelist
//	size: 4KB
//	preserve_on_resize: false
//	ops:
//	  - {op: alloc, id: a, size: 16}
//	  - {op: write, id: a, data: hello}
//	  - {op: resize, id: a, size: 32}
//	  - {op: free, id: a}
//	  - {op: check}
package trace

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v3"
)

// Allocator kinds.
const (
	KindFreeList = "freelist"
	KindBump     = "bump"
)

// Operation names.
const (
	OpAlloc  = "alloc"
	OpFree   = "free"
	OpResize = "resize"
	OpWrite  = "write"
	OpCheck  = "check"
	OpReset  = "reset"
)

var (
	ErrUnknownAllocator = errors.New("trace: unknown allocator")
	ErrUnknownOp        = errors.New("trace: unknown op")
	ErrMissingID        = errors.New("trace: op needs an id")
	ErrMissingSize      = errors.New("trace: op needs a size")
	ErrUnknownID        = errors.New("trace: id is not live")
	ErrDuplicateID      = errors.New("trace: id is already live")
	ErrDataTooLong      = errors.New("trace: data does not fit the allocation")
)

// Size is a byte count that unmarshals from either a plain integer or a
// human readable string such as "4KB" or "1.5MB".
type Size uint64

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseSize(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*s = v
	return nil
}

// String formats the size for humans.
func (s Size) String() string {
	return bytesize.New(float64(s)).String()
}

// ParseSize parses "4096", "4KB", "1.5MB" and similar.
func ParseSize(text string) (Size, error) {
	text = strings.TrimSpace(text)
	if n, err := strconv.ParseUint(text, 10, 64); err == nil {
		return Size(n), nil
	}
	b, err := bytesize.Parse(text)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", text, err)
	}
	return Size(b), nil
}

// Op is a single step of a workload.
type Op struct {
	Op    string `yaml:"op"`
	ID    string `yaml:"id,omitempty"`
	Size  Size   `yaml:"size,omitempty"`
	Align uint64 `yaml:"align,omitempty"`
	Data  string `yaml:"data,omitempty"`
}

// Script is a parsed workload.
type Script struct {
	Allocator        string `yaml:"allocator"`
	Size             Size   `yaml:"size"`
	PreserveOnResize bool   `yaml:"preserve_on_resize"`
	Zeroing          *bool  `yaml:"zeroing,omitempty"`
	StrictChecks     bool   `yaml:"strict_checks"`
	Ops              []Op   `yaml:"ops"`
}

// Parse decodes and validates a workload. Unknown fields are rejected.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return &Script{Allocator: KindFreeList}, nil
		}
		return nil, fmt.Errorf("trace: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the script statically. An id becomes live on alloc and
// stops being live on free or reset; free, resize and write need a live id.
// Whether an alloc succeeds at run time is not known here.
func (s *Script) Validate() error {
	switch s.Allocator {
	case "":
		s.Allocator = KindFreeList
	case KindFreeList, KindBump:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAllocator, s.Allocator)
	}

	live := make(map[string]Size)
	for i, op := range s.Ops {
		wrap := func(err error) error {
			return fmt.Errorf("op %d (%s): %w", i, op.Op, err)
		}
		switch op.Op {
		case OpAlloc:
			if op.ID == "" {
				return wrap(ErrMissingID)
			}
			if op.Size == 0 {
				return wrap(ErrMissingSize)
			}
			if _, ok := live[op.ID]; ok {
				return wrap(fmt.Errorf("%w: %q", ErrDuplicateID, op.ID))
			}
			live[op.ID] = op.Size
		case OpFree:
			if err := requireLive(live, op.ID); err != nil {
				return wrap(err)
			}
			delete(live, op.ID)
		case OpResize:
			if err := requireLive(live, op.ID); err != nil {
				return wrap(err)
			}
			if op.Size == 0 {
				return wrap(ErrMissingSize)
			}
			live[op.ID] = op.Size
		case OpWrite:
			if err := requireLive(live, op.ID); err != nil {
				return wrap(err)
			}
			if Size(len(op.Data)) > live[op.ID] {
				return wrap(fmt.Errorf("%w: %d bytes into %d", ErrDataTooLong, len(op.Data), live[op.ID]))
			}
		case OpCheck:
		case OpReset:
			clear(live)
		default:
			return wrap(fmt.Errorf("%w: %q", ErrUnknownOp, op.Op))
		}
	}
	return nil
}

func requireLive(live map[string]Size, id string) error {
	if id == "" {
		return ErrMissingID
	}
	if _, ok := live[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownID, id)
	}
	return nil
}
