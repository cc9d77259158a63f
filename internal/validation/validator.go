// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Package validation wraps a singleton go-playground/validator instance and
// translates its errors into VALIDATION_ERROR API errors.
//
// Field names in errors are the JSON names clients send, so a failure on
//
//	TargetEmail string `json:"target_email" validate:"required,email"`
//
// is reported as "target_email is required".
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/trailmark/internal/models"
)

// CodeValidation is the API error code for request validation failures.
const CodeValidation = "VALIDATION_ERROR"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Value   interface{}
	Message string
}

func (e FieldError) Error() string { return e.Message }

// Errors collects every failed rule of one struct.
type Errors []FieldError

func (es Errors) Error() string {
	if len(es) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// ToAPIError renders the errors in the API envelope's error shape. A single
// failure keeps its message; several are prefixed with their field names.
func (es Errors) ToAPIError() *models.APIError {
	switch len(es) {
	case 0:
		return &models.APIError{Code: CodeValidation, Message: "Validation failed"}
	case 1:
		e := es[0]
		return &models.APIError{
			Code:    CodeValidation,
			Message: e.Message,
			Details: map[string]interface{}{
				"field": e.Field,
				"tag":   e.Tag,
				"value": e.Value,
			},
		}
	}

	fields := make([]map[string]interface{}, len(es))
	msgs := make([]string, len(es))
	for i, e := range es {
		fields[i] = map[string]interface{}{
			"field":   e.Field,
			"tag":     e.Tag,
			"message": e.Message,
		}
		msgs[i] = e.Field + ": " + e.Message
	}
	return &models.APIError{
		Code:    CodeValidation,
		Message: strings.Join(msgs, "; "),
		Details: map[string]interface{}{"fields": fields},
	}
}

// GetValidator returns the shared validator with the domain rules
// membership_level and annotation_scope registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)

		// Registration only fails for an empty tag or a nil func.
		_ = v.RegisterValidation("membership_level", func(fl validator.FieldLevel) bool {
			switch fl.Field().Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				return models.MembershipLevel(fl.Field().Int()).Valid()
			}
			return false
		})
		_ = v.RegisterValidation("annotation_scope", func(fl validator.FieldLevel) bool {
			return fl.Field().Kind() == reflect.String &&
				models.AnnotationScope(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// jsonFieldName reports a field by its json tag, falling back to the Go
// name for untagged fields.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// ValidateStruct checks s against its validate tags. It returns nil or a
// non-empty Errors.
func ValidateStruct(s interface{}) Errors {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: s was not a struct.
		return Errors{{Field: "body", Tag: "struct", Message: err.Error()}}
	}

	out := make(Errors, len(verrs))
	for i, fe := range verrs {
		out[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: message(fe),
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "uuid":
		return field + " must be a valid UUID"
	case "membership_level":
		return field + " must be one of member (1), admin (8) or owner (15)"
	case "annotation_scope":
		return field + " must be one of dashboard_item, project or organization"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
