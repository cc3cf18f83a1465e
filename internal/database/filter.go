package database

import (
	"fmt"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// The evaluator below covers the subset of MongoDB query and update
// semantics the entity repositories rely on.

func matches(doc, filter bson.D) (bool, error) {
	for _, cond := range filter {
		if strings.HasPrefix(cond.Key, "$") {
			return false, fmt.Errorf("%w: top-level %s", ErrUnsupportedQuery, cond.Key)
		}
		val, present := lookup(doc, cond.Key)
		ok, err := matchValue(val, present, cond.Value)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchValue(val any, present bool, cond any) (bool, error) {
	ops, isOps := operatorDoc(cond)
	if !isOps {
		return equalOrContains(val, present, cond), nil
	}
	for _, op := range ops {
		switch op.Key {
		case "$eq":
			if !equalOrContains(val, present, op.Value) {
				return false, nil
			}
		case "$ne":
			if equalOrContains(val, present, op.Value) {
				return false, nil
			}
		case "$in":
			candidates, ok := op.Value.(bson.A)
			if !ok {
				return false, fmt.Errorf("%w: $in needs an array", ErrUnsupportedQuery)
			}
			found := false
			for _, c := range candidates {
				if equalOrContains(val, present, c) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		case "$exists":
			want, ok := op.Value.(bool)
			if !ok {
				return false, fmt.Errorf("%w: $exists needs a boolean", ErrUnsupportedQuery)
			}
			if want != present {
				return false, nil
			}
		default:
			return false, fmt.Errorf("%w: operator %s", ErrUnsupportedQuery, op.Key)
		}
	}
	return true, nil
}

// operatorDoc reports whether v is a non-empty document made only of $-keys.
func operatorDoc(v any) (bson.D, bool) {
	d, ok := v.(bson.D)
	if !ok || len(d) == 0 {
		return nil, false
	}
	for _, e := range d {
		if !strings.HasPrefix(e.Key, "$") {
			return nil, false
		}
	}
	return d, true
}

// equalOrContains follows MongoDB equality: a scalar condition also matches
// an array field holding that element, and null matches a missing field.
func equalOrContains(val any, present bool, cond any) bool {
	if !present {
		return cond == nil
	}
	if valuesEqual(val, cond) {
		return true
	}
	if arr, ok := val.(bson.A); ok {
		if _, condIsArr := cond.(bson.A); !condIsArr {
			for _, el := range arr {
				if valuesEqual(el, cond) {
					return true
				}
			}
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	if x, ok := integer(a); ok {
		if y, ok := integer(b); ok {
			return x == y
		}
	}
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	switch av := a.(type) {
	case bson.A:
		bv, ok := b.(bson.A)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case bson.D:
		bv, ok := b.(bson.D)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i].Key != bv[i].Key || !valuesEqual(av[i].Value, bv[i].Value) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// integer compares integral BSON values exactly; float64 loses precision
// above 2^53.
func integer(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// lookup resolves a dotted path through nested documents.
func lookup(doc bson.D, path string) (any, bool) {
	head, rest, nested := strings.Cut(path, ".")
	for _, e := range doc {
		if e.Key != head {
			continue
		}
		if !nested {
			return e.Value, true
		}
		sub, ok := e.Value.(bson.D)
		if !ok {
			return nil, false
		}
		return lookup(sub, rest)
	}
	return nil, false
}

func setField(doc bson.D, key string, value any) bson.D {
	for i, e := range doc {
		if e.Key == key {
			doc[i].Value = value
			return doc
		}
	}
	return append(doc, bson.E{Key: key, Value: value})
}

func unsetField(doc bson.D, key string) bson.D {
	out := doc[:0]
	for _, e := range doc {
		if e.Key != key {
			out = append(out, e)
		}
	}
	return out
}

// applyUpdate returns a modified copy of doc; doc itself is left untouched.
func applyUpdate(doc, update bson.D) (bson.D, error) {
	next := append(bson.D(nil), doc...)
	id, _ := lookup(doc, "_id")
	for _, op := range update {
		fields, ok := op.Value.(bson.D)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a document", ErrInvalidUpdate, op.Key)
		}
		for _, f := range fields {
			if strings.Contains(f.Key, ".") {
				return nil, fmt.Errorf("%w: dotted path %s", ErrUnsupportedQuery, f.Key)
			}
			if f.Key == "_id" && (op.Key != "$set" || !valuesEqual(f.Value, id)) {
				return nil, fmt.Errorf("%w: _id is immutable", ErrInvalidUpdate)
			}
			switch op.Key {
			case "$set":
				next = setField(next, f.Key, f.Value)
			case "$unset":
				next = unsetField(next, f.Key)
			case "$push":
				if _, modifiers := operatorDoc(f.Value); modifiers {
					return nil, fmt.Errorf("%w: $push modifiers on %s", ErrUnsupportedQuery, f.Key)
				}
				cur, present := lookup(next, f.Key)
				if !present || cur == nil {
					next = setField(next, f.Key, bson.A{f.Value})
					continue
				}
				arr, ok := cur.(bson.A)
				if !ok {
					return nil, fmt.Errorf("%w: $push target %s is not an array", ErrInvalidUpdate, f.Key)
				}
				grown := make(bson.A, 0, len(arr)+1)
				grown = append(grown, arr...)
				next = setField(next, f.Key, append(grown, f.Value))
			default:
				return nil, fmt.Errorf("%w: operator %s", ErrUnsupportedQuery, op.Key)
			}
		}
	}
	return next, nil
}
