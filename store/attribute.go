package store

import (
	"fmt"
	"sort"

	"github.com/hupe1980/kea/internal/manifest"
)

// SetAttribute attaches a scalar attribute to the object at p, replacing
// any previous value. Signed integers and bool are stored as int, unsigned
// integers as uint, floats as float and strings as string.
func (f *File) SetAttribute(p, name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWritable(); err != nil {
		return err
	}
	obj, _, err := f.object(p)
	if err != nil {
		return err
	}
	attr, err := toAttribute(value)
	if err != nil {
		return fmt.Errorf("attribute %s: %w", name, err)
	}
	if obj.Attributes == nil {
		obj.Attributes = make(map[string]manifest.Attribute)
	}
	obj.Attributes[name] = attr
	f.changed = true
	return nil
}

func toAttribute(v any) (manifest.Attribute, error) {
	switch x := v.(type) {
	case bool:
		var n int64
		if x {
			n = 1
		}
		return manifest.Attribute{Type: "int", Int: n}, nil
	case int, int8, int16, int32, int64:
		n, _ := asInt64(x)
		return manifest.Attribute{Type: "int", Int: n}, nil
	case uint, uint8, uint16, uint32, uint64:
		u, _ := asUint64(x)
		return manifest.Attribute{Type: "uint", Uint: u}, nil
	case float32:
		return manifest.Attribute{Type: "float", Float: manifest.Float(x)}, nil
	case float64:
		return manifest.Attribute{Type: "float", Float: manifest.Float(x)}, nil
	case string:
		return manifest.Attribute{Type: "string", String: x}, nil
	}
	return manifest.Attribute{}, fmt.Errorf("%w: unsupported attribute type %T", ErrTypeMismatch, v)
}

func (f *File) attribute(p, name string) (manifest.Attribute, error) {
	if err := f.checkOpen(); err != nil {
		return manifest.Attribute{}, err
	}
	obj, p, err := f.object(p)
	if err != nil {
		return manifest.Attribute{}, err
	}
	attr, ok := obj.Attributes[name]
	if !ok {
		return manifest.Attribute{}, fmt.Errorf("%w: attribute %s of %s", ErrNotFound, name, p)
	}
	return attr, nil
}

// Attribute returns the value of an attribute as int64, uint64, float64 or
// string.
func (f *File) Attribute(p, name string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	attr, err := f.attribute(p, name)
	if err != nil {
		return nil, err
	}
	switch attr.Type {
	case "int":
		return attr.Int, nil
	case "uint":
		return attr.Uint, nil
	case "float":
		return float64(attr.Float), nil
	default:
		return attr.String, nil
	}
}

// AttributeInt returns an integer attribute. Unsigned values that fit are
// converted.
func (f *File) AttributeInt(p, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	attr, err := f.attribute(p, name)
	if err != nil {
		return 0, err
	}
	switch attr.Type {
	case "int":
		return attr.Int, nil
	case "uint":
		if n, ok := asInt64(attr.Uint); ok {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: attribute %s is %s", ErrTypeMismatch, name, attr.Type)
}

// AttributeUint returns an unsigned attribute. Non-negative int values are
// converted.
func (f *File) AttributeUint(p, name string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	attr, err := f.attribute(p, name)
	if err != nil {
		return 0, err
	}
	switch attr.Type {
	case "uint":
		return attr.Uint, nil
	case "int":
		if u, ok := asUint64(attr.Int); ok {
			return u, nil
		}
	}
	return 0, fmt.Errorf("%w: attribute %s is %s", ErrTypeMismatch, name, attr.Type)
}

// AttributeFloat returns a numeric attribute as float64.
func (f *File) AttributeFloat(p, name string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	attr, err := f.attribute(p, name)
	if err != nil {
		return 0, err
	}
	switch attr.Type {
	case "float":
		return float64(attr.Float), nil
	case "int":
		return float64(attr.Int), nil
	case "uint":
		return float64(attr.Uint), nil
	}
	return 0, fmt.Errorf("%w: attribute %s is %s", ErrTypeMismatch, name, attr.Type)
}

// AttributeString returns a string attribute.
func (f *File) AttributeString(p, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	attr, err := f.attribute(p, name)
	if err != nil {
		return "", err
	}
	if attr.Type != "string" {
		return "", fmt.Errorf("%w: attribute %s is %s", ErrTypeMismatch, name, attr.Type)
	}
	return attr.String, nil
}

// HasAttribute reports whether the object at p carries the attribute.
func (f *File) HasAttribute(p, name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := f.attribute(p, name)
	return err == nil
}

// DeleteAttribute removes an attribute. Deleting a missing attribute is a
// no-op.
func (f *File) DeleteAttribute(p, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWritable(); err != nil {
		return err
	}
	obj, _, err := f.object(p)
	if err != nil {
		return err
	}
	if _, ok := obj.Attributes[name]; ok {
		delete(obj.Attributes, name)
		f.changed = true
	}
	return nil
}

// Attributes returns the sorted attribute names of the object at p.
func (f *File) Attributes(p string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	obj, _, err := f.object(p)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(obj.Attributes))
	for name := range obj.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
