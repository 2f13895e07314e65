// Package schema implements the declarative record schema model: field
// descriptors with ordered validation rules, default values and secondary
// index specifications, plus the engines compiled from them. A RecordSchema
// is declared once (typically at package init), bound to a Go struct type,
// and then consumed by the validation, default-construction and persistence
// layers.
package schema

// FieldType represents the scalar field types supported by the schema system.
type FieldType string

const (
	TypeString   FieldType = "string"   // Text data
	TypeInt      FieldType = "int"      // Signed integers
	TypeFloat    FieldType = "float"    // Floating point numbers
	TypeBool     FieldType = "bool"     // True/false values
	TypeTime     FieldType = "time"     // Timestamps
	TypeObjectID FieldType = "objectid" // Document identifiers
	TypeEnum     FieldType = "enum"     // One out of a set of declared string values
)

// RuleKind tags a validation rule variant.
type RuleKind string

const (
	RuleMinLength   RuleKind = "min_length"
	RuleMaxLength   RuleKind = "max_length"
	RuleRequired    RuleKind = "required"
	RuleEmail       RuleKind = "email"
	RulePattern     RuleKind = "pattern"
	RuleNonEmpty    RuleKind = "non_empty"
	RulePositive    RuleKind = "positive"
	RuleNegative    RuleKind = "negative"
	RuleNonNegative RuleKind = "non_negative"
	RuleMin         RuleKind = "min"
	RuleMax         RuleKind = "max"
)

// Rule is a tagged variant over the supported validation checks. Only the
// parameter matching the kind is meaningful: Length for the length bounds,
// Bound for Min/Max, Pattern for regex rules.
type Rule struct {
	Kind    RuleKind
	Length  int
	Bound   int64
	Pattern string
}

// IndexSpec describes a single-field secondary index. Unique, Sparse,
// Background, Name, Order and ExpireAfterSeconds combine freely.
type IndexSpec struct {
	Unique     bool
	Sparse     bool
	Background bool
	// Name is the custom index name; empty lets the store pick one.
	Name string
	// Order is 1 (ascending) or -1 (descending). The builder normalizes an
	// unset order to 1 and rejects anything else at declaration time.
	Order int32
	// ExpireAfterSeconds turns the index into a TTL index expiring documents
	// the given number of seconds past the indexed timestamp.
	ExpireAfterSeconds *int32
}

// Field is the normalized descriptor for one declared field.
type Field struct {
	Name     string
	Type     FieldType
	Optional bool
	// Identifier marks the distinguished document-identifier field.
	Identifier bool
	// Default is the declared default value, nil meaning the type's zero value.
	Default any
	// Values lists the allowed values for an enum field, in declaration order.
	Values []string
	// Rules evaluate in declaration order; the first failure short-circuits.
	Rules []Rule
	Index *IndexSpec
}

// RecordSchema describes one record type mapped to a single store collection.
// It is immutable after Build.
type RecordSchema struct {
	database   string
	collection string
	fields     []Field
	idSetter   string
}

// Database returns the target store name.
func (s *RecordSchema) Database() string { return s.database }

// Collection returns the target collection name.
func (s *RecordSchema) Collection() string { return s.collection }

// Fields returns the field descriptors in declaration order. The identifier
// field, when declared, comes first.
func (s *RecordSchema) Fields() []Field { return s.fields }

// Field returns the descriptor for a named field, or nil.
func (s *RecordSchema) Field(name string) *Field {
	for i := range s.fields {
		if s.fields[i].Name == name {
			return &s.fields[i]
		}
	}
	return nil
}

// HasIdentifier reports whether an identifier field was declared.
func (s *RecordSchema) HasIdentifier() bool {
	return len(s.fields) > 0 && s.fields[0].Identifier
}

// IDSetterName returns the name under which the record builder accepts the
// identifier, "id" unless a custom name was declared.
func (s *RecordSchema) IDSetterName() string { return s.idSetter }

// Document is an untyped structured document, as returned by aggregation.
type Document map[string]any
