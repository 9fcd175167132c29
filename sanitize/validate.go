package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// FieldType names the recognized typed checks for [Rule].
type FieldType string

const (
	// TypeEmail requires a plausible email address.
	TypeEmail FieldType = "email"
	// TypeNumeric requires an unsigned digit sequence.
	TypeNumeric FieldType = "numeric"
	// TypeDate requires an ISO date (2006-01-02).
	TypeDate FieldType = "date"
)

// Rule describes the checks applied to one field by [Validate].
//
// Rule instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Rule struct {
	Required  bool
	Type      FieldType
	MinLength int
	MaxLength int
	Pattern   string
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate checks fields against rules and returns one message per failing
// field; an empty map means every field passed. The required/empty check
// short-circuits a field; other rules are evaluated independently and a
// later failure overwrites an earlier one, so the last violated rule wins.
func Validate(fields map[string]string, rules map[string]Rule) map[string]string {
	errs := make(map[string]string)

	for field, rule := range rules {
		value, present := fields[field]
		trimmed := strings.TrimSpace(value)

		if rule.Required && (!present || trimmed == "") {
			errs[field] = fmt.Sprintf("%s is required", field)
			continue
		}
		if trimmed == "" {
			continue
		}

		switch rule.Type {
		case TypeEmail:
			if !emailPattern.MatchString(trimmed) {
				errs[field] = fmt.Sprintf("%s must be a valid email address", field)
			}
		case TypeNumeric:
			if !isDigits(trimmed) {
				errs[field] = fmt.Sprintf("%s must be numeric", field)
			}
		case TypeDate:
			if _, err := time.Parse("2006-01-02", trimmed); err != nil {
				errs[field] = fmt.Sprintf("%s must be a date in YYYY-MM-DD form", field)
			}
		}

		if rule.MinLength > 0 && len(trimmed) < rule.MinLength {
			errs[field] = fmt.Sprintf("%s must be at least %d characters", field, rule.MinLength)
		}
		if rule.MaxLength > 0 && len(trimmed) > rule.MaxLength {
			errs[field] = fmt.Sprintf("%s must be at most %d characters", field, rule.MaxLength)
		}
		if rule.Pattern != "" {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil || !re.MatchString(trimmed) {
				errs[field] = fmt.Sprintf("%s has an invalid format", field)
			}
		}
	}

	return errs
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
