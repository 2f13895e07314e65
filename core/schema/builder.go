package schema

import (
	"fmt"
	"time"
)

// Builder provides a fluent API for declaring a RecordSchema. Malformed or
// conflicting declarations are collected and reported by Build, so every
// schema error surfaces at declaration time rather than on first use.
type Builder struct {
	database   string
	collection string
	fields     []*FieldBuilder
	hasID      bool
	idSetter   string
	errs       []error
}

// New creates a schema builder targeting the given store and collection.
func New(database, collection string) *Builder {
	return &Builder{database: database, collection: collection, idSetter: "id"}
}

// ID declares the document-identifier field, settable on records under the
// name "id".
func (b *Builder) ID() *Builder {
	if b.hasID {
		b.errs = append(b.errs, fmt.Errorf("identifier declared more than once"))
	}
	b.hasID = true
	return b
}

// IDSetter declares the identifier field with a custom setter name.
func (b *Builder) IDSetter(name string) *Builder {
	b.ID()
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("identifier setter name cannot be empty"))
		return b
	}
	b.idSetter = name
	return b
}

// Field declares a new field and returns its builder for attaching defaults,
// rules and an index spec.
func (b *Builder) Field(name string, typ FieldType) *FieldBuilder {
	fb := &FieldBuilder{parent: b, field: Field{Name: name, Type: typ}}
	b.fields = append(b.fields, fb)
	return fb
}

// Build assembles the immutable RecordSchema, reporting every declaration
// error found.
func (b *Builder) Build() (*RecordSchema, error) {
	errs := append([]error(nil), b.errs...)

	if b.database == "" {
		errs = append(errs, fmt.Errorf("database name cannot be empty"))
	}
	if b.collection == "" {
		errs = append(errs, fmt.Errorf("collection name cannot be empty"))
	}

	seen := map[string]bool{}
	fields := make([]Field, 0, len(b.fields)+1)
	if b.hasID {
		fields = append(fields, Field{Name: "_id", Type: TypeObjectID, Optional: true, Identifier: true})
		seen["_id"] = true
	}
	for _, fb := range b.fields {
		if err := fb.check(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[fb.field.Name] {
			errs = append(errs, fmt.Errorf("duplicate field %q", fb.field.Name))
			continue
		}
		if b.hasID && fb.field.Name == b.idSetter {
			errs = append(errs, fmt.Errorf("field %q collides with the identifier setter name", fb.field.Name))
			continue
		}
		seen[fb.field.Name] = true
		fields = append(fields, fb.field)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid schema for %s.%s: %w", b.database, b.collection, joinErrors(errs))
	}

	return &RecordSchema{
		database:   b.database,
		collection: b.collection,
		fields:     fields,
		idSetter:   b.idSetter,
	}, nil
}

func joinErrors(errs []error) error {
	err := errs[0]
	for _, e := range errs[1:] {
		err = fmt.Errorf("%w; %w", err, e)
	}
	return err
}

// FieldBuilder attaches defaults, validation rules and an index spec to one
// declared field. Rule order is preserved.
type FieldBuilder struct {
	parent *Builder
	field  Field
}

// Optional marks the field as optional-scalar: absent unless set, bound to a
// pointer field on the record struct.
func (fb *FieldBuilder) Optional() *FieldBuilder {
	fb.field.Optional = true
	return fb
}

// Default declares the field's default value, applied by New()/Default()
// to fields not explicitly set.
func (fb *FieldBuilder) Default(value any) *FieldBuilder {
	fb.field.Default = value
	return fb
}

// Values declares the allowed values of an enum field.
func (fb *FieldBuilder) Values(values ...string) *FieldBuilder {
	fb.field.Values = values
	return fb
}

// Index attaches a secondary index specification to the field.
func (fb *FieldBuilder) Index(spec IndexSpec) *FieldBuilder {
	fb.field.Index = &spec
	return fb
}

// Field ends this field's declaration and starts the next one on the parent
// builder, so declarations chain without naming the builder again.
func (fb *FieldBuilder) Field(name string, typ FieldType) *FieldBuilder {
	return fb.parent.Field(name, typ)
}

// ID declares the identifier field on the parent builder.
func (fb *FieldBuilder) ID() *Builder {
	return fb.parent.ID()
}

// IDSetter declares the identifier field with a custom setter name on the
// parent builder.
func (fb *FieldBuilder) IDSetter(name string) *Builder {
	return fb.parent.IDSetter(name)
}

// Build assembles the schema from the parent builder.
func (fb *FieldBuilder) Build() (*RecordSchema, error) {
	return fb.parent.Build()
}

func (fb *FieldBuilder) rule(r Rule) *FieldBuilder {
	fb.field.Rules = append(fb.field.Rules, r)
	return fb
}

// MinLength requires a string of at least n characters.
func (fb *FieldBuilder) MinLength(n int) *FieldBuilder {
	return fb.rule(Rule{Kind: RuleMinLength, Length: n})
}

// MaxLength requires a string of at most n characters.
func (fb *FieldBuilder) MaxLength(n int) *FieldBuilder {
	return fb.rule(Rule{Kind: RuleMaxLength, Length: n})
}

// Required fails validation when an optional field is absent.
func (fb *FieldBuilder) Required() *FieldBuilder {
	return fb.rule(Rule{Kind: RuleRequired})
}

// Email requires a simplified well-formed email address: exactly one "@",
// both sides non-empty, and a "." in the domain side.
func (fb *FieldBuilder) Email() *FieldBuilder {
	return fb.rule(Rule{Kind: RuleEmail})
}

// Pattern requires the value to match the given regular expression. An
// invalid pattern is itself a validation failure at evaluation time.
func (fb *FieldBuilder) Pattern(re string) *FieldBuilder {
	return fb.rule(Rule{Kind: RulePattern, Pattern: re})
}

// NonEmpty fails when the value is absent or blank after trimming.
func (fb *FieldBuilder) NonEmpty() *FieldBuilder {
	return fb.rule(Rule{Kind: RuleNonEmpty})
}

// Positive requires a numeric value strictly greater than zero.
func (fb *FieldBuilder) Positive() *FieldBuilder {
	return fb.rule(Rule{Kind: RulePositive})
}

// Negative requires a numeric value strictly less than zero.
func (fb *FieldBuilder) Negative() *FieldBuilder {
	return fb.rule(Rule{Kind: RuleNegative})
}

// NonNegative requires a numeric value greater than or equal to zero.
func (fb *FieldBuilder) NonNegative() *FieldBuilder {
	return fb.rule(Rule{Kind: RuleNonNegative})
}

// Min requires a numeric value of at least n (inclusive).
func (fb *FieldBuilder) Min(n int64) *FieldBuilder {
	return fb.rule(Rule{Kind: RuleMin, Bound: n})
}

// Max requires a numeric value of at most n (inclusive).
func (fb *FieldBuilder) Max(n int64) *FieldBuilder {
	return fb.rule(Rule{Kind: RuleMax, Bound: n})
}

var stringRules = map[RuleKind]bool{
	RuleMinLength: true, RuleMaxLength: true, RuleEmail: true,
	RulePattern: true, RuleNonEmpty: true,
}

var numericRules = map[RuleKind]bool{
	RulePositive: true, RuleNegative: true, RuleNonNegative: true,
	RuleMin: true, RuleMax: true,
}

func (fb *FieldBuilder) check() error {
	f := &fb.field
	if f.Name == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if f.Name == "_id" {
		return fmt.Errorf("field %q is reserved; declare the identifier with ID()", f.Name)
	}

	switch f.Type {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeTime, TypeEnum:
	default:
		return fmt.Errorf("field %q: unsupported type %q", f.Name, f.Type)
	}

	if f.Type == TypeEnum && len(f.Values) == 0 {
		return fmt.Errorf("field %q: enum requires at least one value", f.Name)
	}
	if f.Type != TypeEnum && len(f.Values) > 0 {
		return fmt.Errorf("field %q: values are only valid on enum fields", f.Name)
	}

	for _, r := range f.Rules {
		if stringRules[r.Kind] && f.Type != TypeString {
			return fmt.Errorf("field %q: rule %q only applies to string fields", f.Name, r.Kind)
		}
		if numericRules[r.Kind] && f.Type != TypeInt && f.Type != TypeFloat {
			return fmt.Errorf("field %q: rule %q only applies to numeric fields", f.Name, r.Kind)
		}
		if r.Kind == RuleRequired && !f.Optional {
			return fmt.Errorf("field %q: rule %q only applies to optional fields", f.Name, r.Kind)
		}
		if r.Kind == RuleMinLength || r.Kind == RuleMaxLength {
			if r.Length < 0 {
				return fmt.Errorf("field %q: rule %q bound cannot be negative", f.Name, r.Kind)
			}
		}
	}

	if f.Index != nil {
		switch f.Index.Order {
		case 0:
			f.Index.Order = 1
		case 1, -1:
		default:
			return fmt.Errorf("field %q: index order must be 1 or -1, got %d", f.Name, f.Index.Order)
		}
		if f.Index.ExpireAfterSeconds != nil && f.Type != TypeTime {
			return fmt.Errorf("field %q: TTL indexes require a time field", f.Name)
		}
	}

	if f.Default != nil {
		if err := checkDefault(f); err != nil {
			return err
		}
	}
	return nil
}

func checkDefault(f *Field) error {
	mismatch := func(want string) error {
		return fmt.Errorf("field %q: default %v (%T) is not a %s", f.Name, f.Default, f.Default, want)
	}
	switch f.Type {
	case TypeString:
		if _, ok := f.Default.(string); !ok {
			return mismatch("string")
		}
	case TypeInt:
		switch f.Default.(type) {
		case int, int8, int16, int32, int64:
		default:
			return mismatch("integer")
		}
	case TypeFloat:
		switch f.Default.(type) {
		case float32, float64:
		default:
			return mismatch("float")
		}
	case TypeBool:
		if _, ok := f.Default.(bool); !ok {
			return mismatch("bool")
		}
	case TypeTime:
		if _, ok := f.Default.(time.Time); !ok {
			return mismatch("time.Time")
		}
	case TypeEnum:
		s, ok := f.Default.(string)
		if !ok {
			return mismatch("string")
		}
		for _, v := range f.Values {
			if v == s {
				return nil
			}
		}
		return fmt.Errorf("field %q: default %q is not among the declared enum values", f.Name, s)
	}
	return nil
}
