// Package filter defines a storage-agnostic predicate tree for selecting
// catalog documents and the builder that derives it from request criteria.
// Storage backends translate an Expression with a Visitor.
package filter

import (
	"fmt"
	"strings"
)

// Op identifies the kind of an expression node.
type Op int

const (
	OpAll Op = iota
	OpEq
	OpContains
	OpAnd
	OpOr
)

func (o Op) String() string {
	switch o {
	case OpAll:
		return "all"
	case OpEq:
		return "eq"
	case OpContains:
		return "contains"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Expression is one node of a filter tree. Leaves (Eq, Contains) carry a
// field and value; And/Or carry children; All matches every document.
type Expression struct {
	Op       Op
	Field    string
	Value    string
	Children []Expression
}

// All returns the identity filter.
func All() Expression {
	return Expression{Op: OpAll}
}

// Eq matches documents whose field equals value exactly.
func Eq(field, value string) Expression {
	return Expression{Op: OpEq, Field: field, Value: value}
}

// Contains matches documents whose field contains term, ignoring case.
func Contains(field, term string) Expression {
	return Expression{Op: OpContains, Field: field, Value: term}
}

// And combines expressions conjunctively. Identity children are dropped and a
// single remaining child is returned unwrapped.
func And(exprs ...Expression) Expression {
	return combine(OpAnd, exprs)
}

// Or combines expressions disjunctively. A single child is returned unwrapped.
func Or(exprs ...Expression) Expression {
	return combine(OpOr, exprs)
}

func combine(op Op, exprs []Expression) Expression {
	children := make([]Expression, 0, len(exprs))
	for _, e := range exprs {
		if e.Op == OpAll {
			if op == OpOr {
				return All()
			}
			continue
		}
		children = append(children, e)
	}
	switch len(children) {
	case 0:
		return All()
	case 1:
		return children[0]
	default:
		return Expression{Op: op, Children: children}
	}
}

// IsAll reports whether the expression matches every document.
func (e Expression) IsAll() bool {
	return e.Op == OpAll
}

// String renders the tree in a compact prefix form, used in logs.
func (e Expression) String() string {
	switch e.Op {
	case OpAll:
		return "all"
	case OpEq, OpContains:
		return fmt.Sprintf("%s(%s,%q)", e.Op, e.Field, e.Value)
	default:
		parts := make([]string, len(e.Children))
		for i, c := range e.Children {
			parts[i] = c.String()
		}
		return fmt.Sprintf("%s(%s)", e.Op, strings.Join(parts, ","))
	}
}

// Visitor translates an expression tree into a backend representation.
type Visitor[T any] interface {
	All() T
	Eq(field, value string) T
	Contains(field, term string) T
	And(children []T) T
	Or(children []T) T
}

// Walk folds e bottom-up through v.
func Walk[T any](e Expression, v Visitor[T]) T {
	switch e.Op {
	case OpEq:
		return v.Eq(e.Field, e.Value)
	case OpContains:
		return v.Contains(e.Field, e.Value)
	case OpAnd, OpOr:
		children := make([]T, len(e.Children))
		for i, c := range e.Children {
			children[i] = Walk(c, v)
		}
		if e.Op == OpAnd {
			return v.And(children)
		}
		return v.Or(children)
	default:
		return v.All()
	}
}
