package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// typeKind distinguishes the coercion strategies CoerceValue interprets.
type typeKind int

const (
	typeString typeKind = iota
	typeInt
	typeFloat
	typeBool
	typeTime
	typeLiteral
	typeUnion
	typeEnum
	typeCustom
)

// TypeSpec is a small descriptor tree replacing Python's reflection-
// heavy coerce_value: each Argument carries one, and CoerceValue
// interprets it without ever needing runtime type introspection.
type TypeSpec struct {
	kind     typeKind
	name     string
	literals []string
	members  []TypeSpec
	enumVals []string
	custom   func(string) (any, error)
}

func (t TypeSpec) Name() string {
	if t.name != "" {
		return t.name
	}
	switch t.kind {
	case typeString:
		return "str"
	case typeInt:
		return "int"
	case typeFloat:
		return "float"
	case typeBool:
		return "bool"
	case typeTime:
		return "datetime"
	default:
		return "value"
	}
}

// StringType is the default coercer: identity-to-string.
func StringType() TypeSpec { return TypeSpec{kind: typeString} }

// IntType parses a base-10 integer.
func IntType() TypeSpec { return TypeSpec{kind: typeInt} }

// FloatType parses a float.
func FloatType() TypeSpec { return TypeSpec{kind: typeFloat} }

// BoolType coerces the bool vocabulary (true/1/yes/on, false/0/no/off).
func BoolType() TypeSpec { return TypeSpec{kind: typeBool} }

// TimeType parses a datetime via a permissive set of common layouts.
func TimeType() TypeSpec { return TypeSpec{kind: typeTime} }

// LiteralType accepts only an exact string match against one of values.
func LiteralType(values ...string) TypeSpec {
	return TypeSpec{kind: typeLiteral, literals: values, name: "Literal"}
}

// UnionType tries each member in declaration order; the first that
// coerces without error wins.
func UnionType(members ...TypeSpec) TypeSpec {
	return TypeSpec{kind: typeUnion, members: members, name: "Union"}
}

// EnumType accepts a member name or a value coercible to the enum's
// declared string vocabulary; values is the ordered allowed set.
func EnumType(name string, values ...string) TypeSpec {
	return TypeSpec{kind: typeEnum, name: name, enumVals: values}
}

// CustomType wraps an arbitrary coercer function under a display name,
// used for types this package has no built-in case for.
func CustomType(name string, fn func(string) (any, error)) TypeSpec {
	return TypeSpec{kind: typeCustom, name: name, custom: fn}
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// CoerceValue deterministically coerces a raw string token under spec,
// recursively for Union members.
func CoerceValue(value string, spec TypeSpec) (any, error) {
	switch spec.kind {
	case typeLiteral:
		for _, lit := range spec.literals {
			if value == lit {
				return value, nil
			}
		}
		return nil, fmt.Errorf("value %q is not a valid literal for %s{%s}", value, spec.Name(), strings.Join(spec.literals, ","))

	case typeUnion:
		var lastErr error
		for _, member := range spec.members {
			v, err := CoerceValue(value, member)
			if err == nil {
				return v, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("value %q could not be coerced to any of the union's arms: %w", value, lastErr)

	case typeEnum:
		for _, name := range spec.enumVals {
			if value == name {
				return value, nil
			}
		}
		return nil, fmt.Errorf("%q should be one of {%s}", value, strings.Join(spec.enumVals, ", "))

	case typeBool:
		return coerceBool(value)

	case typeTime:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("value %q could not be parsed as a datetime", value)

	case typeInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("value %q could not be parsed as an int: %w", value, err)
		}
		return n, nil

	case typeFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q could not be parsed as a float: %w", value, err)
		}
		return f, nil

	case typeCustom:
		if spec.custom == nil {
			return value, nil
		}
		return spec.custom(value)

	default: // typeString
		return value, nil
	}
}

// coerceBool implements the bool vocabulary: true/1/yes/on (any case)
// map to true, false/0/no/off to false; anything else is an error
// (stricter than Python's fallback-to-bool(str), which the spec's
// truth table doesn't actually call for).
func coerceBool(value string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return nil, fmt.Errorf("value %q is not a recognized boolean (true/1/yes/on or false/0/no/off)", value)
	}
}
