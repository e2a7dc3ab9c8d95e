// Package util parses the string arguments of bridge commands.
package util

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// Arg returns the trimmed argument at i, or "" if it is missing.
func Arg(args []string, i int) string {
	if i < 0 || i >= len(args) {
		return ""
	}
	return TrimQuotes(strings.TrimSpace(args[i]))
}

// ParseUUID parses a required id argument. name is used in errors.
func ParseUUID(s, name string) (uuid.UUID, error) {
	s = TrimQuotes(strings.TrimSpace(s))
	if s == "" {
		return uuid.Nil, fmt.Errorf("%s is required", name)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return id, nil
}

// ParseOptionalUUID returns nil for an empty or "null" argument.
func ParseOptionalUUID(s, name string) (*uuid.UUID, error) {
	s = TrimQuotes(strings.TrimSpace(s))
	if s == "" || s == "null" {
		return nil, nil
	}
	id, err := ParseUUID(s, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ParseUUIDList accepts a JSON array of ids or a comma separated list.
// Duplicates are kept.
func ParseUUIDList(s, name string) ([]uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "[]" {
		return nil, nil
	}

	var raw []string
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return nil, fmt.Errorf("invalid %s list: %w", name, err)
		}
	} else {
		raw = strings.Split(s, ",")
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := ParseUUID(r, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseInt parses a required integer argument.
func ParseInt(s, name string) (int, error) {
	s = TrimQuotes(strings.TrimSpace(s))
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}

// ParseOptionalInt returns nil for an empty or "null" argument.
func ParseOptionalInt(s, name string) (*int, error) {
	s = TrimQuotes(strings.TrimSpace(s))
	if s == "" || s == "null" {
		return nil, nil
	}
	v, err := ParseInt(s, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseOptionalFloat returns nil for an empty or "null" argument.
func ParseOptionalFloat(s, name string) (*float64, error) {
	s = TrimQuotes(strings.TrimSpace(s))
	if s == "" || s == "null" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return &v, nil
}

// ParseBool parses a boolean argument, returning def when it is empty.
func ParseBool(s string, def bool) (bool, error) {
	s = TrimQuotes(strings.TrimSpace(s))
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(s)
}

// OptionalString returns nil for an empty or "null" argument.
func OptionalString(s string) *string {
	s = TrimQuotes(strings.TrimSpace(s))
	if s == "" || s == "null" {
		return nil
	}
	return &s
}
