// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

// Package validation provides struct validation using
// go-playground/validator v10 through a thread-safe singleton
// instance. The built-in validators cover the engine's needs
// (latitude/longitude ranges, numeric bounds, oneof sets).
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError describes one failed field.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e FieldError) message() string {
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", e.Field, e.Param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", e.Field, e.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field, e.Param)
	default:
		return fmt.Sprintf("%s failed %s validation", e.Field, e.Tag)
	}
}

// Error collects every failed field of one struct.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.message()
	}
	return strings.Join(msgs, "; ")
}

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil on success or a *Error listing each failed field.
func ValidateStruct(s interface{}) *Error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &Error{Fields: []FieldError{{Field: "unknown", Tag: "unknown"}}}
	}

	fields := make([]FieldError, len(fieldErrs))
	for i, fe := range fieldErrs {
		fields[i] = FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		}
	}
	return &Error{Fields: fields}
}
