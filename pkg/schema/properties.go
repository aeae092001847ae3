package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/spf13/cast"

	"github.com/soundprediction/graphmodel/pkg/types"
)

// Properties flattens an entity into a store property map. Scalars and
// scalar collections are stored directly; value subtrees are JSON-encoded
// into a single property. The caller is expected to have run CheckValueCycles
// first; Properties assumes the instance graph is a DAG.
func Properties(entity types.Entity) (map[string]any, error) {
	switch e := entity.(type) {
	case *types.DynamicNode:
		return dynamicProperties(e.Properties)
	case *types.DynamicRelationship:
		return dynamicProperties(e.Properties)
	}

	s, err := Of(entity)
	if err != nil {
		return nil, err
	}
	v := reflect.ValueOf(entity).Elem()
	props := make(map[string]any, len(s.Properties))
	for _, p := range s.Properties {
		fv := v.FieldByIndex(p.Index)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		switch p.Category {
		case Scalar:
			props[p.Name] = fv.Interface()
		case ScalarCollection:
			if fv.Kind() == reflect.Slice && fv.IsNil() {
				continue
			}
			props[p.Name] = fv.Interface()
		case ValueSubtree:
			if (fv.Kind() == reflect.Map || fv.Kind() == reflect.Slice) && fv.IsNil() {
				continue
			}
			encoded, err := json.Marshal(fv.Interface())
			if err != nil {
				return nil, fmt.Errorf("encode property %s: %w", p.Name, err)
			}
			props[p.Name] = string(encoded)
		}
	}
	return props, nil
}

// dynamicProperties validates an open property map: values must be scalars,
// scalar collections, or acyclic plain objects (stored as JSON).
func dynamicProperties(in map[string]any) (map[string]any, error) {
	props := make(map[string]any, len(in))
	for name, value := range in {
		if value == nil {
			continue
		}
		t := reflect.TypeOf(value)
		cat, err := classifyField(t, map[reflect.Type]bool{})
		if err != nil {
			return nil, fmt.Errorf("dynamic property %s: %w", name, err)
		}
		switch cat {
		case Scalar, ScalarCollection:
			props[name] = value
		case ValueSubtree:
			encoded, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("encode dynamic property %s: %w", name, err)
			}
			props[name] = string(encoded)
		default:
			return nil, fmt.Errorf("dynamic property %s has shape %s: %w", name, cat, types.ErrInvalidGraph)
		}
	}
	return props, nil
}

// SetProperties hydrates an entity's data properties from a store property
// map, coercing store scalar representations back to the declared field
// types.
func SetProperties(entity types.Entity, props map[string]any) error {
	switch e := entity.(type) {
	case *types.DynamicNode:
		e.Properties = cloneProps(props)
		return nil
	case *types.DynamicRelationship:
		e.Properties = cloneProps(props)
		return nil
	}

	s, err := Of(entity)
	if err != nil {
		return err
	}
	v := reflect.ValueOf(entity).Elem()
	for _, p := range s.Properties {
		raw, ok := props[p.Name]
		if !ok || raw == nil {
			continue
		}
		fv := v.FieldByIndex(p.Index)
		if err := assignProperty(fv, p, raw); err != nil {
			return fmt.Errorf("hydrate property %s: %w", p.Name, err)
		}
	}
	return nil
}

func assignProperty(fv reflect.Value, p Property, raw any) error {
	target := fv
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		target = fv.Elem()
	}
	switch p.Category {
	case Scalar:
		return assignScalar(target, raw)
	case ScalarCollection:
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return fmt.Errorf("cannot assign %T to %s", raw, target.Type())
		}
		out := reflect.MakeSlice(target.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if err := assignScalar(out.Index(i), rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		target.Set(out)
		return nil
	case ValueSubtree:
		encoded, err := cast.ToStringE(raw)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(encoded), target.Addr().Interface())
	}
	return nil
}

func assignScalar(target reflect.Value, raw any) error {
	if target.Type() == timeType {
		ts, err := cast.ToTimeE(raw)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(ts))
		return nil
	}
	switch target.Kind() {
	case reflect.Bool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return err
		}
		target.SetBool(b)
	case reflect.String:
		str, err := cast.ToStringE(raw)
		if err != nil {
			return err
		}
		target.SetString(str)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(raw)
		if err != nil {
			return err
		}
		target.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(raw)
		if err != nil {
			return err
		}
		target.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return err
		}
		target.SetFloat(f)
	case reflect.Interface:
		target.Set(reflect.ValueOf(raw))
	default:
		return fmt.Errorf("cannot assign %T to %s", raw, target.Type())
	}
	return nil
}

func cloneProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// Labels returns the label set for an entity: declared labels for dynamic
// entities, classified labels otherwise.
func Labels(entity types.Entity) ([]string, error) {
	if dn, ok := entity.(*types.DynamicNode); ok {
		if len(dn.Labels) == 0 {
			return nil, fmt.Errorf("dynamic node has no labels: %w", types.ErrInvalidGraph)
		}
		return dn.Labels, nil
	}
	s, err := Of(entity)
	if err != nil {
		return nil, err
	}
	return s.Labels, nil
}

// RelType returns the relationship type label for a relationship entity.
func RelType(rel types.Relationship) (string, error) {
	if dr, ok := rel.(*types.DynamicRelationship); ok {
		if dr.Type == "" {
			return "", fmt.Errorf("dynamic relationship has no type: %w", types.ErrInvalidGraph)
		}
		return dr.Type, nil
	}
	s, err := Of(rel)
	if err != nil {
		return "", err
	}
	return s.Label(), nil
}
