package utils

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	// Philippine mobile numbers in international form, e.g. +639123456789
	phoneRegex = regexp.MustCompile(`^\+63\d{10}$`)
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	var messages []string
	for _, err := range ve {
		messages = append(messages, fmt.Sprintf("%s %s", err.Field, err.Message))
	}
	return strings.Join(messages, ", ")
}

// Enum is implemented by closed string sets that know their members
type Enum interface {
	Valid() bool
}

// ValidateStruct validates a struct using its `validate` tags.
//
// Supported rules: required, email, phone, min, max, gt, gte, enum, dive, no_xss.
// Nil pointer fields are skipped so partial updates only validate what was sent.
func ValidateStruct(s interface{}) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return fmt.Errorf("expected struct, got %s", v.Kind())
	}

	errors := validateValue("", v)
	if len(errors) > 0 {
		return errors
	}

	return nil
}

func validateValue(prefix string, v reflect.Value) ValidationErrors {
	var errors ValidationErrors
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// Skip unexported fields
		if !field.CanInterface() {
			continue
		}

		if fieldType.Anonymous && field.Kind() == reflect.Struct {
			errors = append(errors, validateValue(prefix, field)...)
			continue
		}

		validateTag := fieldType.Tag.Get("validate")
		if validateTag == "" {
			continue
		}

		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				continue
			}
			field = field.Elem()
		}

		name := prefix + fieldName(fieldType)
		for _, rule := range strings.Split(validateTag, ",") {
			rule = strings.TrimSpace(rule)
			if rule == "dive" {
				errors = append(errors, dive(name, field)...)
				continue
			}
			if err := validateField(name, field, rule); err != nil {
				errors = append(errors, *err)
				// Later rules on a missing value only add noise
				if rule == "required" {
					break
				}
			}
		}
	}

	return errors
}

// dive validates the elements of a slice or the fields of a nested struct
func dive(name string, field reflect.Value) ValidationErrors {
	var errors ValidationErrors
	switch field.Kind() {
	case reflect.Struct:
		errors = append(errors, validateValue(name+".", field)...)
	case reflect.Slice, reflect.Array:
		for i := 0; i < field.Len(); i++ {
			elem := field.Index(i)
			if elem.Kind() == reflect.Ptr {
				if elem.IsNil() {
					continue
				}
				elem = elem.Elem()
			}
			if elem.Kind() == reflect.Struct {
				errors = append(errors, validateValue(fmt.Sprintf("%s[%d].", name, i), elem)...)
			}
		}
	}
	return errors
}

// validateField validates a single field against a rule
func validateField(fieldName string, field reflect.Value, rule string) *ValidationError {
	ruleName, ruleValue, _ := strings.Cut(rule, "=")

	switch ruleName {
	case "required":
		if isEmpty(field) {
			return &ValidationError{
				Field:   fieldName,
				Message: "is required",
			}
		}
	case "email":
		if field.Kind() == reflect.String {
			email := field.String()
			if email != "" && !IsValidEmail(email) {
				return &ValidationError{
					Field:   fieldName,
					Message: "must be a valid email address",
				}
			}
		}
	case "phone":
		if field.Kind() == reflect.String {
			phone := field.String()
			if phone != "" && !IsPhoneNumber(phone) {
				return &ValidationError{
					Field:   fieldName,
					Message: "must be +63 followed by 10 digits (e.g. +639123456789)",
				}
			}
		}
	case "min":
		limit := parseFloatOrDefault(ruleValue, 0)
		if field.Kind() == reflect.String {
			if float64(utf8.RuneCountInString(field.String())) < limit {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be at least %s characters", ruleValue),
				}
			}
		} else if isNumeric(field) {
			if getNumericValue(field) < limit {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be at least %s", ruleValue),
				}
			}
		}
	case "max":
		limit := parseFloatOrDefault(ruleValue, 0)
		switch {
		case field.Kind() == reflect.String:
			if float64(utf8.RuneCountInString(field.String())) > limit {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be at most %s characters", ruleValue),
				}
			}
		case field.Kind() == reflect.Slice:
			if float64(field.Len()) > limit {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must have at most %s entries", ruleValue),
				}
			}
		case isNumeric(field):
			if getNumericValue(field) > limit {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be at most %s", ruleValue),
				}
			}
		}
	case "gt":
		if isNumeric(field) {
			if getNumericValue(field) <= parseFloatOrDefault(ruleValue, 0) {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be greater than %s", ruleValue),
				}
			}
		}
	case "gte":
		if isNumeric(field) {
			if getNumericValue(field) < parseFloatOrDefault(ruleValue, 0) {
				return &ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("must be greater than or equal to %s", ruleValue),
				}
			}
		}
	case "enum":
		if field.Kind() == reflect.String && field.String() == "" {
			return nil
		}
		if enum, ok := field.Interface().(Enum); ok && !enum.Valid() {
			return &ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("has unsupported value %q", field.String()),
			}
		}
	case "no_xss":
		if field.Kind() == reflect.String {
			str := strings.ToLower(field.String())
			xssPatterns := []string{
				"<script", "</script", "javascript:", "vbscript:", "onload=", "onerror=",
				"onclick=", "onmouseover=", "<iframe", "<object", "<embed", "data:text/html",
			}
			for _, pattern := range xssPatterns {
				if strings.Contains(str, pattern) {
					return &ValidationError{
						Field:   fieldName,
						Message: "contains potentially malicious content",
					}
				}
			}
		}
	}

	return nil
}

// fieldName returns the JSON name of a struct field
func fieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// isEmpty checks if a field is empty
func isEmpty(field reflect.Value) bool {
	switch field.Kind() {
	case reflect.String:
		return strings.TrimSpace(field.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return field.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return field.IsNil()
	case reflect.Invalid:
		return true
	default:
		return false
	}
}

// isNumeric checks if a field is numeric
func isNumeric(field reflect.Value) bool {
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// getNumericValue gets the numeric value as float64
func getNumericValue(field reflect.Value) float64 {
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(field.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(field.Uint())
	case reflect.Float32, reflect.Float64:
		return field.Float()
	default:
		return 0
	}
}

func parseFloatOrDefault(s string, defaultValue float64) float64 {
	result, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// IsValidEmail validates email format
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// NormalizeEmail normalizes an email address for consistent comparison
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsPhoneNumber checks a Philippine mobile number in +63 form
func IsPhoneNumber(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// ValidatePassword validates password strength
func ValidatePassword(password string) []string {
	var errors []string

	if len(password) < 8 {
		errors = append(errors, "Password must be at least 8 characters long")
	}

	if len(password) > 128 {
		errors = append(errors, "Password must be at most 128 characters long")
	}

	hasLetter := regexp.MustCompile(`[A-Za-z]`).MatchString(password)
	hasNumber := regexp.MustCompile(`\d`).MatchString(password)

	if !hasLetter {
		errors = append(errors, "Password must contain at least one letter")
	}

	if !hasNumber {
		errors = append(errors, "Password must contain at least one number")
	}

	return errors
}
