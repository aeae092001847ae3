package schema

import (
	"fmt"
	"reflect"

	"github.com/soundprediction/graphmodel/pkg/types"
)

// CheckValueCycles walks the value-object instance graph reachable from the
// entity's value-subtree properties with an identity-keyed visited set along
// the current path. Any path that returns to an ancestor instance is a cycle
// and fails with ErrInvalidGraph. Shared references to the same instance from
// multiple parents are permitted: the reachability graph must be a DAG, not a
// tree.
func CheckValueCycles(entity types.Entity) error {
	switch e := entity.(type) {
	case *types.DynamicNode:
		return checkDynamicCycles(e.Properties)
	case *types.DynamicRelationship:
		return checkDynamicCycles(e.Properties)
	}

	s, err := Of(entity)
	if err != nil {
		return err
	}
	v := reflect.ValueOf(entity).Elem()
	path := map[uintptr]bool{}
	for _, p := range s.Properties {
		if p.Category != ValueSubtree {
			continue
		}
		if err := walkValue(v.FieldByIndex(p.Index), path); err != nil {
			return fmt.Errorf("property %s: %w", p.Name, err)
		}
	}
	return nil
}

func checkDynamicCycles(props map[string]any) error {
	path := map[uintptr]bool{}
	for name, value := range props {
		if value == nil {
			continue
		}
		if err := walkValue(reflect.ValueOf(value), path); err != nil {
			return fmt.Errorf("property %s: %w", name, err)
		}
	}
	return nil
}

// walkValue tracks pointer, map, and slice identities on the current path.
// Plain struct values are copies and cannot alias an ancestor.
func walkValue(v reflect.Value, path map[uintptr]bool) error {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return walkValue(v.Elem(), path)

	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		id := v.Pointer()
		if path[id] {
			return fmt.Errorf("cyclic value subtree: %w", types.ErrInvalidGraph)
		}
		path[id] = true
		err := walkValue(v.Elem(), path)
		delete(path, id)
		return err

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		id := v.Pointer()
		if path[id] {
			return fmt.Errorf("cyclic value subtree: %w", types.ErrInvalidGraph)
		}
		path[id] = true
		iter := v.MapRange()
		for iter.Next() {
			if err := walkValue(iter.Value(), path); err != nil {
				return err
			}
		}
		delete(path, id)
		return nil

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		id := v.Pointer()
		if path[id] {
			return fmt.Errorf("cyclic value subtree: %w", types.ErrInvalidGraph)
		}
		path[id] = true
		for i := 0; i < v.Len(); i++ {
			if err := walkValue(v.Index(i), path); err != nil {
				return err
			}
		}
		delete(path, id)
		return nil

	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := walkValue(v.Index(i), path); err != nil {
				return err
			}
		}
		return nil

	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				continue
			}
			if err := walkValue(v.Field(i), path); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}
