package config

import (
	"fmt"
	"os"

	"github.com/SteelMorgan/sqldump-importer/internal/normalizer"
	"gopkg.in/yaml.v3"
)

// ErrorCode is one entry of the non-fatal error set
type ErrorCode struct {
	Code uint16 `yaml:"code"`
	Name string `yaml:"name"`
}

// Policy holds the statement-level tuning that must be extensible without code changes
type Policy struct {
	NonFatalCodes []ErrorCode       `yaml:"non_fatal_codes"`
	Collations    map[string]string `yaml:"collations"`
}

// DefaultNonFatalCodes lists MySQL errors that mean the object or row is already in place
func DefaultNonFatalCodes() []ErrorCode {
	return []ErrorCode{
		{Code: 1007, Name: "ER_DB_CREATE_EXISTS"},
		{Code: 1022, Name: "ER_DUP_KEY"},
		{Code: 1050, Name: "ER_TABLE_EXISTS_ERROR"},
		{Code: 1060, Name: "ER_DUP_FIELDNAME"},
		{Code: 1061, Name: "ER_DUP_KEYNAME"},
		{Code: 1062, Name: "ER_DUP_ENTRY"},
		{Code: 1069, Name: "ER_TOO_MANY_KEYS"},
		{Code: 1304, Name: "ER_SP_ALREADY_EXISTS"},
		{Code: 1359, Name: "ER_TRG_ALREADY_EXISTS"},
		{Code: 1826, Name: "ER_FK_DUP_NAME"},
	}
}

// DefaultPolicy returns the built-in policy
func DefaultPolicy() *Policy {
	return &Policy{
		NonFatalCodes: DefaultNonFatalCodes(),
		Collations:    normalizer.DefaultCollationSubstitutions(),
	}
}

// LoadPolicy loads a policy YAML file. An empty path yields the default policy.
// Sections missing from the file keep their defaults.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}

	defaults := DefaultPolicy()
	if p.NonFatalCodes == nil {
		p.NonFatalCodes = defaults.NonFatalCodes
	}
	if p.Collations == nil {
		p.Collations = defaults.Collations
	}

	return &p, nil
}

// Codes returns the numeric non-fatal codes, with extra codes appended
func (p *Policy) Codes(extra ...uint16) []uint16 {
	codes := make([]uint16, 0, len(p.NonFatalCodes)+len(extra))
	for _, c := range p.NonFatalCodes {
		codes = append(codes, c.Code)
	}
	return append(codes, extra...)
}
