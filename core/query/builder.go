// Package query provides a fluent API for building the filter and update
// documents consumed by the persistence layer. The output is a plain bson.M:
// the model operations accept any structured document, so the builder is a
// typed convenience, never a requirement.
package query

import (
	"go.mongodb.org/mongo-driver/bson"
)

// FilterBuilder accumulates field conditions into a single filter document.
type FilterBuilder struct {
	clauses []bson.M
}

// Filter creates a new, empty filter builder. Build on an empty builder
// yields the match-all filter.
func Filter() *FilterBuilder {
	return &FilterBuilder{}
}

// Where begins a condition for a specific field.
func (fb *FilterBuilder) Where(field string) *FieldCondition {
	return &FieldCondition{parent: fb, field: field}
}

// Build returns the assembled filter document. Conditions on distinct fields
// merge into one document; repeated fields fall back to an $and list so no
// clause is lost.
func (fb *FilterBuilder) Build() bson.M {
	switch len(fb.clauses) {
	case 0:
		return bson.M{}
	case 1:
		return fb.clauses[0]
	}
	merged := bson.M{}
	for _, c := range fb.clauses {
		for k, v := range c {
			if _, dup := merged[k]; dup {
				return and(fb.clauses)
			}
			merged[k] = v
		}
	}
	return merged
}

func and(clauses []bson.M) bson.M {
	all := make(bson.A, 0, len(clauses))
	for _, c := range clauses {
		all = append(all, c)
	}
	return bson.M{"$and": all}
}

// And combines filters so that all must match.
func And(filters ...bson.M) bson.M {
	return combine("$and", filters)
}

// Or combines filters so that at least one must match.
func Or(filters ...bson.M) bson.M {
	return combine("$or", filters)
}

// Nor combines filters so that none may match.
func Nor(filters ...bson.M) bson.M {
	return combine("$nor", filters)
}

func combine(op string, filters []bson.M) bson.M {
	list := make(bson.A, 0, len(filters))
	for _, f := range filters {
		list = append(list, f)
	}
	return bson.M{op: list}
}

// FieldCondition builds a single field's comparison and returns the parent
// builder for chaining.
type FieldCondition struct {
	parent *FilterBuilder
	field  string
}

func (fc *FieldCondition) add(doc any) *FilterBuilder {
	fc.parent.clauses = append(fc.parent.clauses, bson.M{fc.field: doc})
	return fc.parent
}

// Eq adds an equality condition.
func (fc *FieldCondition) Eq(value any) *FilterBuilder {
	return fc.add(value)
}

// Neq adds a not-equal condition.
func (fc *FieldCondition) Neq(value any) *FilterBuilder {
	return fc.add(bson.M{"$ne": value})
}

// Lt adds a less-than condition.
func (fc *FieldCondition) Lt(value any) *FilterBuilder {
	return fc.add(bson.M{"$lt": value})
}

// Lte adds a less-than-or-equal condition.
func (fc *FieldCondition) Lte(value any) *FilterBuilder {
	return fc.add(bson.M{"$lte": value})
}

// Gt adds a greater-than condition.
func (fc *FieldCondition) Gt(value any) *FilterBuilder {
	return fc.add(bson.M{"$gt": value})
}

// Gte adds a greater-than-or-equal condition.
func (fc *FieldCondition) Gte(value any) *FilterBuilder {
	return fc.add(bson.M{"$gte": value})
}

// In checks that the field's value is within a set of values.
func (fc *FieldCondition) In(values ...any) *FilterBuilder {
	return fc.add(bson.M{"$in": bson.A(values)})
}

// Nin checks that the field's value is not within a set of values.
func (fc *FieldCondition) Nin(values ...any) *FilterBuilder {
	return fc.add(bson.M{"$nin": bson.A(values)})
}

// Exists checks that the field is present on the document.
func (fc *FieldCondition) Exists() *FilterBuilder {
	return fc.add(bson.M{"$exists": true})
}

// NotExists checks that the field is absent from the document.
func (fc *FieldCondition) NotExists() *FilterBuilder {
	return fc.add(bson.M{"$exists": false})
}

// Regex checks the field against a regular expression.
func (fc *FieldCondition) Regex(pattern string) *FilterBuilder {
	return fc.add(bson.M{"$regex": pattern})
}

// UpdateBuilder accumulates update operators into a single update document.
type UpdateBuilder struct {
	doc bson.M
}

// Update creates a new, empty update builder.
func Update() *UpdateBuilder {
	return &UpdateBuilder{doc: bson.M{}}
}

func (ub *UpdateBuilder) op(operator, field string, value any) *UpdateBuilder {
	section, ok := ub.doc[operator].(bson.M)
	if !ok {
		section = bson.M{}
		ub.doc[operator] = section
	}
	section[field] = value
	return ub
}

// Set assigns a field's value.
func (ub *UpdateBuilder) Set(field string, value any) *UpdateBuilder {
	return ub.op("$set", field, value)
}

// Unset removes a field.
func (ub *UpdateBuilder) Unset(field string) *UpdateBuilder {
	return ub.op("$unset", field, "")
}

// Inc increments a numeric field.
func (ub *UpdateBuilder) Inc(field string, by any) *UpdateBuilder {
	return ub.op("$inc", field, by)
}

// Push appends a value to an array field.
func (ub *UpdateBuilder) Push(field string, value any) *UpdateBuilder {
	return ub.op("$push", field, value)
}

// Build returns the assembled update document.
func (ub *UpdateBuilder) Build() bson.M {
	return ub.doc
}
