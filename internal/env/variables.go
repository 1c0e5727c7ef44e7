package env

import (
	"slices"
	"strconv"
	"strings"

	emucore "github.com/user-none/retrobackend/api"
)

// Variable is one core option as exchanged with the frontend.
type Variable struct {
	// Key is the frontend key, the option key with the core name prefix.
	Key string
	// Option is the key the core knows the option by.
	Option      string
	Description string
	Values      []string
	Default     string
}

// Def returns the SET_VARIABLES wire form with the default listed first.
func (v Variable) Def() VariableDef {
	return VariableDef{
		Key:   v.Key,
		Value: v.Description + "; " + strings.Join(reorderDefault(v.Values, v.Default), "|"),
	}
}

// Allows reports whether value is one of the variable's values.
func (v Variable) Allows(value string) bool {
	return slices.Contains(v.Values, value)
}

// WithDefault returns v with a different default if value is allowed.
func (v Variable) WithDefault(value string) (Variable, bool) {
	if !v.Allows(value) {
		return v, false
	}
	v.Default = value
	return v, true
}

// VariablesFromOptions converts core options into frontend variables whose
// keys are prefixed with prefix.
func VariablesFromOptions(prefix string, opts []emucore.CoreOption) []Variable {
	vars := make([]Variable, 0, len(opts))
	for _, opt := range opts {
		var values []string
		switch opt.Type {
		case emucore.CoreOptionBool:
			values = []string{"false", "true"}
		case emucore.CoreOptionRange:
			step := opt.Step
			if step <= 0 {
				step = 1
			}
			for i := opt.Min; i <= opt.Max; i += step {
				values = append(values, strconv.Itoa(i))
			}
		default:
			values = slices.Clone(opt.Values)
		}

		def := opt.Default
		if !slices.Contains(values, def) && len(values) > 0 {
			def = values[0]
		}

		vars = append(vars, Variable{
			Key:         prefix + opt.Key,
			Option:      opt.Key,
			Description: opt.Label,
			Values:      values,
			Default:     def,
		})
	}
	return vars
}

// reorderDefault moves the default value to the front of a values slice.
func reorderDefault(values []string, def string) []string {
	result := make([]string, 0, len(values))
	result = append(result, def)
	for _, v := range values {
		if v != def {
			result = append(result, v)
		}
	}
	return result
}

// Snapshot is an immutable view of option values, keyed by option key.
type Snapshot struct {
	values map[string]string
}

// Get returns the value of an option.
func (s Snapshot) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of options in the snapshot.
func (s Snapshot) Len() int {
	return len(s.values)
}

// All returns a copy of every option value.
func (s Snapshot) All() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
