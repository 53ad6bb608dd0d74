package normalizer

import (
	"regexp"
	"strings"
)

// ErrorNormalizer normalizes database error messages by replacing dynamic parts
// with placeholders to enable grouping similar failures together
type ErrorNormalizer struct {
	quotedPattern   *regexp.Regexp
	backtickPattern *regexp.Regexp
	numberPattern   *regexp.Regexp
	spacePattern    *regexp.Regexp
}

// NewErrorNormalizer creates a new error normalizer with compiled patterns
func NewErrorNormalizer() *ErrorNormalizer {
	return &ErrorNormalizer{
		// Single-quoted values: 'abc', including MySQL '' escapes
		quotedPattern: regexp.MustCompile(`'(?:[^']|'')*'`),

		// Backtick identifiers are kept: they name the table or column that failed
		backtickPattern: regexp.MustCompile("`[^`]*`"),

		numberPattern: regexp.MustCompile(`\b\d+\b`),

		spacePattern: regexp.MustCompile(`\s+`),
	}
}

// NormalizeMessage turns a message like
// "Duplicate entry '42' for key 'PRIMARY'" into "Duplicate entry <VALUE> for key <VALUE>"
func (n *ErrorNormalizer) NormalizeMessage(message string) string {
	if message == "" {
		return ""
	}

	// Protect identifiers so digits inside them survive number replacement
	var identifiers []string
	normalized := n.backtickPattern.ReplaceAllStringFunc(message, func(match string) string {
		identifiers = append(identifiers, match)
		return "\x00"
	})

	// Quoted values first: they may contain numbers
	normalized = n.quotedPattern.ReplaceAllString(normalized, "<VALUE>")
	normalized = n.numberPattern.ReplaceAllString(normalized, "<NUMBER>")

	for _, ident := range identifiers {
		normalized = strings.Replace(normalized, "\x00", ident, 1)
	}

	normalized = n.spacePattern.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}
