package tool

import (
	"fmt"
	"strings"
)

// RequireField returns an error if the string value is empty or blank.
func RequireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("'%s' is required", name)
	}
	return nil
}

// ValidateRange checks that value is within [min, max]. Returns nil on success.
func ValidateRange(name string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be %d-%d", name, min, max)
	}
	return nil
}

// ValidateOptionalRange is ValidateRange for fields where 0 means "not set".
func ValidateOptionalRange(name string, value, min, max int) error {
	if value == 0 {
		return nil
	}
	return ValidateRange(name, value, min, max)
}

// ValidateNonNegative checks that value is >= 0.
func ValidateNonNegative(name string, value int) error {
	if value < 0 {
		return fmt.Errorf("%s must be >= 0", name)
	}
	return nil
}

// ValidateEnum checks that value is one of the allowed values.
// An empty value is allowed (treated as "not set").
func ValidateEnum(name, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (want: %s)", name, value, strings.Join(allowed, ", "))
}

// ValidateMaxLength checks that value does not exceed max bytes.
func ValidateMaxLength(name, value string, max int) error {
	if len(value) > max {
		return fmt.Errorf("%s exceeds maximum length of %d", name, max)
	}
	return nil
}

// ExactlyOne checks that exactly one of the named values is non-empty.
// kvs alternates names and values.
func ExactlyOne(kvs ...string) error {
	if len(kvs)%2 != 0 {
		return fmt.Errorf("ExactlyOne: odd number of arguments")
	}
	var names, set []string
	for i := 0; i < len(kvs); i += 2 {
		names = append(names, kvs[i])
		if strings.TrimSpace(kvs[i+1]) != "" {
			set = append(set, kvs[i])
		}
	}
	switch len(set) {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("one of %s is required", strings.Join(names, ", "))
	default:
		return fmt.Errorf("only one of %s may be given", strings.Join(set, ", "))
	}
}

// reservedParams cannot be passed through a tool's free-form params object.
var reservedParams = []string{"api_key", "engine", "output"}

// ValidateExtraParams rejects reserved keys in a free-form params map.
func ValidateExtraParams(params map[string]string) error {
	for _, k := range reservedParams {
		if _, ok := params[k]; ok {
			return fmt.Errorf("params.%s cannot be set here", k)
		}
	}
	return nil
}

// ValidateAll returns the first non-nil error from the given list.
func ValidateAll(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
