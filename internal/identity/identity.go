// Package identity normalizes the user references that show up in
// collaborator payloads: a bare id string, an ObjectID, a populated
// document carrying an id field, or a pointer to any of those.
package identity

import (
	"reflect"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Referencer is implemented by payload types that know their own user id.
type Referencer interface {
	UserRef() string
}

// Resolve returns the canonical string id for any supported user
// reference, or "" when the value cannot be resolved. It never fails.
func Resolve(v any) string {
	switch ref := v.(type) {
	case nil:
		return ""
	case string:
		return ref
	case primitive.ObjectID:
		if ref.IsZero() {
			return ""
		}
		return ref.Hex()
	case Referencer:
		return ref.UserRef()
	case map[string]any:
		if id, ok := ref["id"]; ok {
			return Resolve(id)
		}
		if id, ok := ref["_id"]; ok {
			return Resolve(id)
		}
		return ""
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return Resolve(rv.Elem().Interface())
	}
	if rv.Kind() == reflect.Struct {
		if f := rv.FieldByName("ID"); f.IsValid() && f.CanInterface() {
			return Resolve(f.Interface())
		}
	}
	return ""
}
