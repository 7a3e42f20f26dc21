// Package rsrc reads and writes classic Macintosh resource forks.
package rsrc

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNotFound is returned by Lookup when no resource matches.
	ErrNotFound = errors.New("resource not found")
	// ErrMalformedFork is returned for resource data that cannot be parsed.
	ErrMalformedFork = errors.New("malformed resource fork")
)

// Type is a four-character resource type code such as 'CODE'.
type Type uint32

// ParseType converts a four-character string to a Type.
func ParseType(s string) (Type, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("resource type %q is not four characters", s)
	}
	return Type(uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3])), nil
}

// MustType is ParseType for constants.
func MustType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Bytes returns the code most significant byte first.
func (t Type) Bytes() [4]byte {
	return [4]byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)}
}

func (t Type) String() string {
	b := t.Bytes()
	return string(b[:])
}

// Store maps a resource type and ID to its data.
type Store interface {
	Lookup(t Type, id int16) ([]byte, error)
}

// Resource is a single entry of a fork.
type Resource struct {
	Type  Type
	ID    int16
	Name  string
	Attrs uint8
	Data  []byte
}

// Fork is an in-memory resource map.
type Fork struct {
	// Attrs are the map-level attributes.
	Attrs uint16
	types map[Type]map[int16]*Resource
}

// NewFork returns an empty fork.
func NewFork() *Fork {
	return &Fork{types: make(map[Type]map[int16]*Resource)}
}

// Add stores a resource, replacing any existing one with the same type and ID.
func (f *Fork) Add(r *Resource) {
	ids, ok := f.types[r.Type]
	if !ok {
		ids = make(map[int16]*Resource)
		f.types[r.Type] = ids
	}
	ids[r.ID] = r
}

// Get returns the resource entry.
func (f *Fork) Get(t Type, id int16) (*Resource, bool) {
	r, ok := f.types[t][id]
	return r, ok
}

// Lookup returns the resource data.
func (f *Fork) Lookup(t Type, id int16) ([]byte, error) {
	r, ok := f.Get(t, id)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' ID %d", ErrNotFound, t, id)
	}
	return r.Data, nil
}

// Types returns the resource types in ascending order.
func (f *Fork) Types() []Type {
	out := make([]Type, 0, len(f.types))
	for t := range f.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IDs returns the resource IDs of a type in ascending order.
func (f *Fork) IDs(t Type) []int16 {
	out := make([]int16, 0, len(f.types[t]))
	for id := range f.types[t] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of resources in the fork.
func (f *Fork) Len() int {
	n := 0
	for _, ids := range f.types {
		n += len(ids)
	}
	return n
}
