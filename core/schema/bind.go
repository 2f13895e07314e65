package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	objectIDType = reflect.TypeOf(primitive.ObjectID{})
)

type boundField struct {
	field *Field
	// index is the struct field index carrying this schema field.
	index int
}

// BoundSchema is a RecordSchema bound to a concrete Go struct type. Binding
// walks the struct's fields once at declaration time, matching them to the
// schema by bson tag (or lowercased field name) and checking type
// compatibility, so every mismatch is reported before the first operation.
type BoundSchema struct {
	schema  *RecordSchema
	typ     reflect.Type
	fields  []boundField
	idIndex int
}

// Bind matches a RecordSchema against a struct type. Optional fields must be
// pointers on the struct; the identifier must be a *primitive.ObjectID tagged
// "_id".
func Bind(s *RecordSchema, typ reflect.Type) (*BoundSchema, error) {
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot bind schema %s.%s to %s: not a struct", s.database, s.collection, typ)
	}

	byName := map[string]int{}
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		byName[bsonFieldName(sf)] = i
	}

	bs := &BoundSchema{schema: s, typ: typ, idIndex: -1}
	for i := range s.fields {
		f := &s.fields[i]
		idx, ok := byName[f.Name]
		if !ok {
			return nil, fmt.Errorf("schema field %q has no matching field on %s", f.Name, typ)
		}
		sf := typ.Field(idx)
		if err := checkFieldType(f, sf.Type); err != nil {
			return nil, fmt.Errorf("binding %s to %s: %w", f.Name, typ, err)
		}
		// Without omitempty an unset identifier marshals as a null _id, which
		// the store happily persists.
		if f.Identifier && !hasOmitEmpty(sf) {
			return nil, fmt.Errorf(`binding %s to %s: identifier field must be tagged "_id,omitempty"`, f.Name, typ)
		}
		bs.fields = append(bs.fields, boundField{field: f, index: idx})
		if f.Identifier {
			bs.idIndex = idx
		}
	}
	return bs, nil
}

// Schema returns the underlying record schema.
func (bs *BoundSchema) Schema() *RecordSchema { return bs.schema }

// Type returns the bound struct type.
func (bs *BoundSchema) Type() reflect.Type { return bs.typ }

// bsonFieldName mirrors the driver's key derivation: the bson tag name when
// present, the lowercased field name otherwise.
func bsonFieldName(sf reflect.StructField) string {
	tag, ok := sf.Tag.Lookup("bson")
	if !ok {
		return strings.ToLower(sf.Name)
	}
	name := strings.Split(tag, ",")[0]
	if name == "" {
		return strings.ToLower(sf.Name)
	}
	return name
}

func hasOmitEmpty(sf reflect.StructField) bool {
	tag, ok := sf.Tag.Lookup("bson")
	if !ok {
		return false
	}
	for _, opt := range strings.Split(tag, ",")[1:] {
		if opt == "omitempty" {
			return true
		}
	}
	return false
}

func checkFieldType(f *Field, t reflect.Type) error {
	if f.Identifier {
		if t.Kind() != reflect.Ptr || t.Elem() != objectIDType {
			return fmt.Errorf("identifier field must be *primitive.ObjectID, got %s", t)
		}
		return nil
	}
	if f.Optional {
		if t.Kind() != reflect.Ptr {
			return fmt.Errorf("optional field must be a pointer, got %s", t)
		}
		t = t.Elem()
	}
	switch f.Type {
	case TypeString, TypeEnum:
		if t.Kind() != reflect.String {
			return fmt.Errorf("expected a string kind for %s field, got %s", f.Type, t)
		}
	case TypeInt:
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		default:
			return fmt.Errorf("expected a signed integer kind, got %s", t)
		}
	case TypeFloat:
		switch t.Kind() {
		case reflect.Float32, reflect.Float64:
		default:
			return fmt.Errorf("expected a float kind, got %s", t)
		}
	case TypeBool:
		if t.Kind() != reflect.Bool {
			return fmt.Errorf("expected a bool kind, got %s", t)
		}
	case TypeTime:
		if t != timeType {
			return fmt.Errorf("expected time.Time, got %s", t)
		}
	case TypeObjectID:
		if t != objectIDType {
			return fmt.Errorf("expected primitive.ObjectID, got %s", t)
		}
	}
	return nil
}

// value extracts a field's value from a record. For optional fields a nil
// pointer reports absent; present values are dereferenced.
func (bs *BoundSchema) value(rec reflect.Value, bf boundField) (reflect.Value, bool) {
	v := rec.Field(bf.index)
	if bf.field.Optional || bf.field.Identifier {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		return v.Elem(), true
	}
	return v, true
}

// Identifier returns the record's document identifier, if declared and set.
func (bs *BoundSchema) Identifier(rec any) (primitive.ObjectID, bool) {
	if bs.idIndex < 0 {
		return primitive.NilObjectID, false
	}
	v := reflect.Indirect(reflect.ValueOf(rec)).Field(bs.idIndex)
	if v.IsNil() {
		return primitive.NilObjectID, false
	}
	return v.Elem().Interface().(primitive.ObjectID), true
}

// AssignIdentifier sets the record's identifier when declared and still
// unset. It never overwrites a caller-assigned id.
func (bs *BoundSchema) AssignIdentifier(rec any, id primitive.ObjectID) {
	if bs.idIndex < 0 {
		return
	}
	v := reflect.Indirect(reflect.ValueOf(rec)).Field(bs.idIndex)
	if !v.IsNil() {
		return
	}
	v.Set(reflect.ValueOf(&id))
}
