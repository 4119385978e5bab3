package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// IDSeparator joins a base ID and an instance number.
const IDSeparator = ":"

// CombinedID forms the instance-level ID "base:instance".
func CombinedID(base string, instance int) string {
	return base + IDSeparator + strconv.Itoa(instance)
}

// BaseID returns the base part of a composite ID. Base IDs are returned unchanged.
func BaseID(id string) string {
	base, _, _ := strings.Cut(id, IDSeparator)
	return base
}

// IsInstanceID reports whether id carries an instance suffix.
func IsInstanceID(id string) bool {
	return strings.Contains(id, IDSeparator)
}

// InstanceNumber parses the instance part of a composite ID.
func InstanceNumber(id string) (int, error) {
	_, suffix, ok := strings.Cut(id, IDSeparator)
	if !ok {
		return 0, fmt.Errorf("%w: %q has no instance suffix", ErrInvalidArgument, id)
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q has a malformed instance suffix", ErrInvalidArgument, id)
	}
	return n, nil
}

// ValidBaseID reports whether id may be used as a root-level identifier.
func ValidBaseID(id string) bool {
	return strings.TrimSpace(id) != "" && !strings.Contains(id, IDSeparator)
}
