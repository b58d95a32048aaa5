package terrain

import "reflect"

// Property names, as reported in change notifications.
const (
	PropHeightMap   = "heightMap"
	PropNormalMap   = "normalMap"
	PropShader      = "shaderMaterial"
	PropTileCount   = "tileCount"
	PropHeightScale = "heightScale"
	PropChunkCount  = "chunkCount"
	PropChunkIndex  = "chunkIndex"
)

// Change is a notification that a property took a new value.
type Change struct {
	Property string
	Args     []any
}

// Property holds one observable value.
//
// Set reports a change when the old and new values differ, or when either of them
// is absent (a nil pointer, interface, map, slice, chan or func). Absent values are
// never considered equal, so writing nil over nil is still a change. For interface
// types the dynamic values must be comparable.
type Property[T comparable] struct {
	name  string
	value T
}

// NewProperty creates a property holding initial.
func NewProperty[T comparable](name string, initial T) *Property[T] {
	return &Property[T]{name: name, value: initial}
}

// Name returns the property name.
func (p *Property[T]) Name() string { return p.name }

// Get returns the current value.
func (p *Property[T]) Get() T { return p.value }

// Set stores v and reports whether that counts as a change.
func (p *Property[T]) Set(v T) bool {
	if !isAbsent(p.value) && !isAbsent(v) && p.value == v {
		return false
	}
	p.value = v
	return true
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}
