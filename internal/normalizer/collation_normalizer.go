package normalizer

import (
	"sort"
	"strings"
)

// DefaultCollationSubstitutions maps collation names unknown to older
// MySQL/MariaDB servers to the closest supported collation
func DefaultCollationSubstitutions() map[string]string {
	return map[string]string{
		"utf8mb4_0900_ai_ci": "utf8mb4_unicode_ci",
		"utf8mb4_0900_as_ci": "utf8mb4_unicode_ci",
		"utf8mb4_0900_as_cs": "utf8mb4_bin",
		"utf8mb4_0900_bin":   "utf8mb4_bin",
		"utf8mb3_0900_ai_ci": "utf8_general_ci",
	}
}

// CollationNormalizer rewrites deprecated or unsupported collation names
// in statement text before execution
type CollationNormalizer struct {
	replacer *strings.Replacer
	tokens   []string
}

// NewCollationNormalizer builds a normalizer from a deprecated -> replacement table.
// Longer tokens are matched first so overlapping names are replaced deterministically.
func NewCollationNormalizer(substitutions map[string]string) *CollationNormalizer {
	tokens := make([]string, 0, len(substitutions))
	for from := range substitutions {
		if from == "" {
			continue
		}
		tokens = append(tokens, from)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})

	if len(tokens) == 0 {
		return &CollationNormalizer{}
	}

	pairs := make([]string, 0, len(tokens)*2)
	for _, from := range tokens {
		pairs = append(pairs, from, substitutions[from])
	}

	return &CollationNormalizer{
		replacer: strings.NewReplacer(pairs...),
		tokens:   tokens,
	}
}

// Normalize returns the statement with every known token replaced
func (n *CollationNormalizer) Normalize(sql string) string {
	if n == nil || n.replacer == nil || sql == "" {
		return sql
	}
	// Most statements are data rows without any collation clause
	if !n.mentionsToken(sql) {
		return sql
	}
	return n.replacer.Replace(sql)
}

func (n *CollationNormalizer) mentionsToken(sql string) bool {
	for _, token := range n.tokens {
		if strings.Contains(sql, token) {
			return true
		}
	}
	return false
}
