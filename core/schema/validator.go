package schema

import (
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/asaidimu/go-griot/core/fault"
)

// Validator evaluates a bound schema's rules against records. Evaluation is
// fail-fast: fields in declaration order, rules within a field in declaration
// order, and the first violation anywhere aborts the whole call. Validation
// has no side effects.
type Validator struct {
	bound *BoundSchema
}

// NewValidator creates a validator for a bound schema. The returned validator
// is safe for concurrent use.
func NewValidator(bound *BoundSchema) *Validator {
	return &Validator{bound: bound}
}

// Validate checks a record (a struct or pointer to struct of the bound type)
// against every declared rule. It returns nil or the first failure as a
// validation fault naming the field.
func (v *Validator) Validate(rec any) error {
	rv := reflect.Indirect(reflect.ValueOf(rec))
	for _, bf := range v.bound.fields {
		if bf.field.Identifier {
			continue
		}
		value, present := v.bound.value(rv, bf)
		for _, rule := range bf.field.Rules {
			if err := evalRule(bf.field, rule, value, present); err != nil {
				return err
			}
		}
	}
	return nil
}

func evalRule(f *Field, r Rule, value reflect.Value, present bool) error {
	switch r.Kind {
	case RuleRequired:
		if !present {
			return fault.Validation(f.Name, "field '%s' is required", f.Name)
		}
		return nil
	case RuleNonEmpty:
		if !present {
			return fault.Validation(f.Name, "field '%s' is missing but marked as non-empty", f.Name)
		}
		if strings.TrimSpace(value.String()) == "" {
			return fault.Validation(f.Name, "field '%s' must be non-empty", f.Name)
		}
		return nil
	}

	// Every other rule is skipped for absent optional values.
	if !present {
		return nil
	}

	switch r.Kind {
	case RuleMinLength:
		if utf8.RuneCountInString(value.String()) < r.Length {
			return fault.Validation(f.Name, "field '%s' must be at least %d characters long", f.Name, r.Length)
		}
	case RuleMaxLength:
		if utf8.RuneCountInString(value.String()) > r.Length {
			return fault.Validation(f.Name, "field '%s' must be at most %d characters long", f.Name, r.Length)
		}
	case RuleEmail:
		if !isEmail(value.String()) {
			return fault.Validation(f.Name, "field '%s' must be a valid email address", f.Name)
		}
	case RulePattern:
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fault.Validation(f.Name, "invalid pattern in validation for '%s': %v", f.Name, err)
		}
		if !re.MatchString(value.String()) {
			return fault.Validation(f.Name, "field '%s' does not match the required pattern", f.Name)
		}
	case RulePositive:
		if !numericCheck(value, func(n float64) bool { return n > 0 }) {
			return fault.Validation(f.Name, "field '%s' must be positive", f.Name)
		}
	case RuleNegative:
		if !numericCheck(value, func(n float64) bool { return n < 0 }) {
			return fault.Validation(f.Name, "field '%s' must be negative", f.Name)
		}
	case RuleNonNegative:
		if !numericCheck(value, func(n float64) bool { return n >= 0 }) {
			return fault.Validation(f.Name, "field '%s' must be non-negative", f.Name)
		}
	case RuleMin:
		if !atLeast(value, r.Bound) {
			return fault.Validation(f.Name, "field '%s' must be at least %d", f.Name, r.Bound)
		}
	case RuleMax:
		if !atMost(value, r.Bound) {
			return fault.Validation(f.Name, "field '%s' must be at most %d", f.Name, r.Bound)
		}
	}
	return nil
}

// isEmail applies the deliberately simplified check: exactly one "@", both
// sides non-empty, and at least one "." on the domain side. Not RFC-complete.
func isEmail(s string) bool {
	if strings.Count(s, "@") != 1 {
		return false
	}
	parts := strings.SplitN(s, "@", 2)
	return parts[0] != "" && parts[1] != "" && strings.Contains(parts[1], ".")
}

func numericCheck(v reflect.Value, ok func(float64) bool) bool {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return ok(v.Float())
	default:
		return ok(float64(v.Int()))
	}
}

func atLeast(v reflect.Value, bound int64) bool {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float() >= float64(bound)
	default:
		return v.Int() >= bound
	}
}

func atMost(v reflect.Value, bound int64) bool {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float() <= float64(bound)
	default:
		return v.Int() <= bound
	}
}
