// Package crmmap translates between local entities and CRM property bags.
// Every synchronized field has exactly one row; the row names both sides and
// the direction in which values may flow.
package crmmap

import (
	"errors"
	"fmt"
	"strconv"
)

// Direction restricts which way a field is synchronized
type Direction int

const (
	LocalToRemote Direction = iota + 1
	RemoteToLocal
	Both
)

func (d Direction) String() string {
	switch d {
	case LocalToRemote:
		return "local->remote"
	case RemoteToLocal:
		return "remote->local"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

func (d Direction) writesRemote() bool { return d == LocalToRemote || d == Both }
func (d Direction) readsRemote() bool  { return d == RemoteToLocal || d == Both }

// Field is one row of a mapping table
type Field[T any] struct {
	Local     string
	Remote    string
	Direction Direction

	get func(*T) (string, bool)
	set func(*T, string) error
	// named renders the value when the field is explicitly requested; zero values included
	named func(*T) string
}

// Table is a validated set of fields for one entity type
type Table[T any] struct {
	fields   []Field[T]
	byLocal  map[string]int
	byRemote map[string]int
}

// NewTable validates that local paths and remote names are unique and that
// every row can be read or written in its declared direction.
func NewTable[T any](fields ...Field[T]) (*Table[T], error) {
	t := &Table[T]{
		fields:   fields,
		byLocal:  make(map[string]int, len(fields)),
		byRemote: make(map[string]int, len(fields)),
	}

	var errs []error
	for i, f := range fields {
		if f.Local == "" || f.Remote == "" {
			errs = append(errs, fmt.Errorf("row %d: empty name", i))
			continue
		}
		if _, dup := t.byLocal[f.Local]; dup {
			errs = append(errs, fmt.Errorf("local path %q mapped twice", f.Local))
		}
		if _, dup := t.byRemote[f.Remote]; dup {
			errs = append(errs, fmt.Errorf("remote property %q mapped twice", f.Remote))
		}
		if f.Direction.writesRemote() && f.get == nil {
			errs = append(errs, fmt.Errorf("%s: %s row without getter", f.Local, f.Direction))
		}
		if f.Direction.readsRemote() && f.set == nil {
			errs = append(errs, fmt.Errorf("%s: %s row without setter", f.Local, f.Direction))
		}
		t.byLocal[f.Local] = i
		t.byRemote[f.Remote] = i
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

// MustTable is NewTable for package-level tables; it panics on an invalid table
func MustTable[T any](fields ...Field[T]) *Table[T] {
	t, err := NewTable(fields...)
	if err != nil {
		panic(fmt.Sprintf("crmmap: invalid table: %v", err))
	}
	return t
}

// Fields returns the rows in declaration order
func (t *Table[T]) Fields() []Field[T] {
	out := make([]Field[T], len(t.fields))
	copy(out, t.fields)
	return out
}

// RemoteProperties lists the CRM properties readable into the entity
func (t *Table[T]) RemoteProperties() []string {
	var props []string
	for _, f := range t.fields {
		if f.Direction.readsRemote() {
			props = append(props, f.Remote)
		}
	}
	return props
}

// RemoteName returns the CRM property for a local path
func (t *Table[T]) RemoteName(local string) (string, bool) {
	i, ok := t.byLocal[local]
	if !ok {
		return "", false
	}
	return t.fields[i].Remote, true
}

// ToRemote projects every present, writable field. Absent fields are omitted.
func (t *Table[T]) ToRemote(entity *T) map[string]string {
	props := make(map[string]string)
	for _, f := range t.fields {
		if !f.Direction.writesRemote() {
			continue
		}
		if v, ok := f.get(entity); ok {
			props[f.Remote] = v
		}
	}
	return props
}

// ToRemoteOnly is ToRemote restricted to the given local paths. A named
// required field is sent even when zero, so a cleared value reaches the CRM.
func (t *Table[T]) ToRemoteOnly(entity *T, locals ...string) map[string]string {
	props := make(map[string]string)
	for _, local := range locals {
		i, ok := t.byLocal[local]
		if !ok {
			continue
		}
		f := t.fields[i]
		if !f.Direction.writesRemote() {
			continue
		}
		if v, ok := f.get(entity); ok {
			props[f.Remote] = v
		} else if f.named != nil {
			props[f.Remote] = f.named(entity)
		}
	}
	return props
}

// ToLocal builds a partial entity from a property bag. Unknown properties are
// ignored; an unparsable value is reported and the field left unset.
func (t *Table[T]) ToLocal(props map[string]string) (*T, []string, error) {
	entity := new(T)
	set, err := t.Apply(entity, props)
	return entity, set, err
}

// Apply writes readable properties onto entity and returns the local paths it set
func (t *Table[T]) Apply(entity *T, props map[string]string) ([]string, error) {
	var set []string
	var errs []error
	for _, f := range t.fields {
		if !f.Direction.readsRemote() {
			continue
		}
		v, ok := props[f.Remote]
		if !ok || v == "" {
			continue
		}
		if err := f.set(entity, v); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", f.Remote, v, err))
			continue
		}
		set = append(set, f.Local)
	}
	return set, errors.Join(errs...)
}

// Present lists the local paths whose value is set on entity
func (t *Table[T]) Present(entity *T) []string {
	var locals []string
	for _, f := range t.fields {
		if f.get == nil {
			continue
		}
		if _, ok := f.get(entity); ok {
			locals = append(locals, f.Local)
		}
	}
	return locals
}

// String maps an optional string field
func String[T any](local, remote string, dir Direction, ptr func(*T) **string) Field[T] {
	return Field[T]{
		Local:     local,
		Remote:    remote,
		Direction: dir,
		get: func(e *T) (string, bool) {
			v := *ptr(e)
			if v == nil {
				return "", false
			}
			return *v, true
		},
		set: func(e *T, s string) error {
			*ptr(e) = &s
			return nil
		},
	}
}

// Float maps a required numeric field; the zero value counts as absent unless named
func Float[T any](local, remote string, dir Direction, ptr func(*T) *float64) Field[T] {
	return Field[T]{
		Local:     local,
		Remote:    remote,
		Direction: dir,
		get: func(e *T) (string, bool) {
			v := *ptr(e)
			if v == 0 {
				return "", false
			}
			return strconv.FormatFloat(v, 'f', -1, 64), true
		},
		set: func(e *T, s string) error {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*ptr(e) = v
			return nil
		},
		named: func(e *T) string {
			return strconv.FormatFloat(*ptr(e), 'f', -1, 64)
		},
	}
}

// Int maps a required integer field; the zero value counts as absent unless named
func Int[T any](local, remote string, dir Direction, ptr func(*T) *int) Field[T] {
	return Field[T]{
		Local:     local,
		Remote:    remote,
		Direction: dir,
		get: func(e *T) (string, bool) {
			v := *ptr(e)
			if v == 0 {
				return "", false
			}
			return strconv.Itoa(v), true
		},
		set: func(e *T, s string) error {
			v, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			*ptr(e) = v
			return nil
		},
		named: func(e *T) string {
			return strconv.Itoa(*ptr(e))
		},
	}
}

// Text maps a required string field; the empty string counts as absent unless named
func Text[T any](local, remote string, dir Direction, ptr func(*T) *string) Field[T] {
	return Field[T]{
		Local:     local,
		Remote:    remote,
		Direction: dir,
		get: func(e *T) (string, bool) {
			v := *ptr(e)
			return v, v != ""
		},
		set: func(e *T, s string) error {
			*ptr(e) = s
			return nil
		},
		named: func(e *T) string { return *ptr(e) },
	}
}

// Custom maps a field with its own conversion; either func may be nil for one-way rows
func Custom[T any](local, remote string, dir Direction, get func(*T) (string, bool), set func(*T, string) error) Field[T] {
	return Field[T]{Local: local, Remote: remote, Direction: dir, get: get, set: set}
}
