package schema

import (
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewRecord constructs a pointer to a fresh record of the bound type with
// every declared default applied. Fields without a default keep their zero
// value: empty string, 0, false, zero time, nil for optionals, the first
// declared value for enums. Pure value construction, no side effects.
func (bs *BoundSchema) NewRecord() any {
	rec := reflect.New(bs.typ)
	elem := rec.Elem()
	for _, bf := range bs.fields {
		f := bf.field
		if f.Identifier {
			continue
		}
		def := f.Default
		if def == nil {
			if f.Type == TypeEnum && !f.Optional {
				def = f.Values[0]
			} else {
				continue
			}
		}
		// Defaults were checked at declaration time, so assignment cannot fail.
		v, _ := coerce(elem.Field(bf.index).Type(), def)
		elem.Field(bf.index).Set(v)
	}
	return rec.Interface()
}

// RecordBuilder builds a record field by field on top of the default
// construction. Setters may be called in any order; the final per-field
// assignment wins. The first error latches and is reported by Record.
type RecordBuilder struct {
	bound *BoundSchema
	rec   reflect.Value
	err   error
}

// Builder starts a record builder seeded with NewRecord's defaults.
func (bs *BoundSchema) Builder() *RecordBuilder {
	return &RecordBuilder{bound: bs, rec: reflect.ValueOf(bs.NewRecord())}
}

// Set assigns a value to the named field, wrapping into the pointer for
// optional fields and converting compatible numeric values. The identifier
// is settable only when declared, under the schema's id setter name.
func (rb *RecordBuilder) Set(name string, value any) *RecordBuilder {
	if rb.err != nil {
		return rb
	}
	s := rb.bound.schema
	if s.HasIdentifier() && name == s.IDSetterName() {
		id, ok := value.(primitive.ObjectID)
		if !ok {
			rb.err = fmt.Errorf("setter %q expects a primitive.ObjectID, got %T", name, value)
			return rb
		}
		rb.rec.Elem().Field(rb.bound.idIndex).Set(reflect.ValueOf(&id))
		return rb
	}
	for _, bf := range rb.bound.fields {
		if bf.field.Identifier || bf.field.Name != name {
			continue
		}
		target := rb.rec.Elem().Field(bf.index)
		v, err := coerce(target.Type(), value)
		if err != nil {
			rb.err = fmt.Errorf("field %q: %w", name, err)
			return rb
		}
		target.Set(v)
		return rb
	}
	rb.err = fmt.Errorf("no settable field %q", name)
	return rb
}

// Record returns the built record or the first setter error.
func (rb *RecordBuilder) Record() (any, error) {
	if rb.err != nil {
		return nil, rb.err
	}
	return rb.rec.Interface(), nil
}

// coerce converts a caller value to the target field type, allowing numeric
// widening and named-type conversions within the same kind family, and
// wrapping into pointers for optional fields.
func coerce(target reflect.Type, value any) (reflect.Value, error) {
	if value == nil {
		return reflect.Value{}, fmt.Errorf("cannot assign nil")
	}
	if target.Kind() == reflect.Ptr {
		inner, err := coerce(target.Elem(), value)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(inner)
		return p, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Type() == target {
		return rv, nil
	}
	if sameFamily(target.Kind(), rv.Kind()) && rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("value %v (%T) is not assignable to %s", value, value, target)
}

func sameFamily(a, b reflect.Kind) bool {
	family := func(k reflect.Kind) int {
		switch k {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Float32, reflect.Float64:
			return 1 // numeric
		case reflect.String:
			return 2
		case reflect.Bool:
			return 3
		default:
			return 0
		}
	}
	fa, fb := family(a), family(b)
	return fa != 0 && fa == fb
}
