// Package sanitize provides type-directed normalization of untrusted input
// strings and rule-based field validation.
//
// # Kinds
//
// [Sanitize] never fails: every kind maps arbitrary input to a safe value.
// String and HTML kinds neutralize markup by escaping rather than deleting,
// so visible content survives. Numeric kinds extract the numeric portion and
// fall back to an empty result when nothing parseable remains.
//
// # Architecture boundaries
//
// This package is pure string processing. It performs no I/O, imposes no
// policy, and must not import any other authcore package.
package sanitize

import (
	"html"
	"strings"
	"unicode"
)

// Kind selects the normalization applied by [Sanitize].
type Kind int

const (
	// KindString strips control characters and escapes markup.
	KindString Kind = iota
	// KindHTML escapes markup entities while preserving visible content.
	KindHTML
	// KindEmail passes through only characters valid in an email address.
	KindEmail
	// KindURL passes through only characters valid in a URL.
	KindURL
	// KindInt extracts an optionally signed digit sequence.
	KindInt
	// KindFloat extracts an optionally signed digit sequence with one fraction part.
	KindFloat
)

const (
	emailChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789.!#$%&'*+-/=?^_`{|}~@"
	urlChars   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._~:/?#[]@!$&'()*+,;=%"
)

// Sanitize normalizes value according to kind. It never returns an error;
// for numeric kinds with no parseable content the result is empty.
func Sanitize(value string, kind Kind) string {
	switch kind {
	case KindString:
		return html.EscapeString(stripControl(value))
	case KindHTML:
		return html.EscapeString(value)
	case KindEmail:
		return keepOnly(value, emailChars)
	case KindURL:
		return keepOnly(stripControl(value), urlChars)
	case KindInt:
		return extractInt(value)
	case KindFloat:
		return extractFloat(value)
	default:
		return html.EscapeString(stripControl(value))
	}
}

// SanitizeSlice applies [Sanitize] element-wise and returns a new slice.
func SanitizeSlice(values []string, kind Kind) []string {
	if values == nil {
		return nil
	}

	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Sanitize(v, kind)
	}
	return out
}

func stripControl(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
}

func keepOnly(value, allowed string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(allowed, r) {
			return r
		}
		return -1
	}, value)
}

func extractInt(value string) string {
	var b strings.Builder

	for i, r := range value {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case (r == '-' || r == '+') && i == 0:
			b.WriteRune(r)
		}
	}

	out := b.String()
	if out == "-" || out == "+" {
		return ""
	}
	return out
}

func extractFloat(value string) string {
	var (
		b        strings.Builder
		dotSeen  bool
		hasDigit bool
	)

	for i, r := range value {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			hasDigit = true
		case r == '.' && !dotSeen:
			b.WriteRune(r)
			dotSeen = true
		case (r == '-' || r == '+') && i == 0:
			b.WriteRune(r)
		}
	}

	if !hasDigit {
		return ""
	}
	return b.String()
}
