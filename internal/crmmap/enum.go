package crmmap

import (
	"fmt"
	"sort"
)

// EnumTable is a declared two-way lookup between local enum values and CRM option values
type EnumTable[E ~string] struct {
	toRemote map[E]string
	toLocal  map[string]E
}

// NewEnumTable checks that pairs cover every value in all and that neither
// side repeats.
func NewEnumTable[E ~string](all []E, pairs map[E]string) (*EnumTable[E], error) {
	t := &EnumTable[E]{
		toRemote: make(map[E]string, len(pairs)),
		toLocal:  make(map[string]E, len(pairs)),
	}
	for _, v := range all {
		if _, ok := pairs[v]; !ok {
			return nil, fmt.Errorf("enum value %q has no remote option", v)
		}
	}

	// sorted so the reported conflict is stable
	locals := make([]E, 0, len(pairs))
	for local := range pairs {
		locals = append(locals, local)
	}
	sort.Slice(locals, func(i, j int) bool { return locals[i] < locals[j] })

	for _, local := range locals {
		remote := pairs[local]
		if other, dup := t.toLocal[remote]; dup {
			return nil, fmt.Errorf("remote option %q used by %q and %q", remote, other, local)
		}
		t.toRemote[local] = remote
		t.toLocal[remote] = local
	}
	return t, nil
}

// MustEnumTable panics on an invalid table
func MustEnumTable[E ~string](all []E, pairs map[E]string) *EnumTable[E] {
	t, err := NewEnumTable(all, pairs)
	if err != nil {
		panic(fmt.Sprintf("crmmap: invalid enum table: %v", err))
	}
	return t
}

func (t *EnumTable[E]) Remote(v E) (string, bool) {
	r, ok := t.toRemote[v]
	return r, ok
}

func (t *EnumTable[E]) Local(remote string) (E, bool) {
	v, ok := t.toLocal[remote]
	return v, ok
}
