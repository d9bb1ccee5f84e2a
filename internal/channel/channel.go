// Package channel derives canonical channel keys. A direct channel key is
// the two member ids in ascending order joined with "_", so both sides
// resolve the same key; a group channel key is "g" plus the group id.
package channel

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidKey = errors.New("invalid channel key")

const groupPrefix = "g"

// Direct returns the canonical key for a user pair. Commutative:
// Direct(a, b) == Direct(b, a).
func Direct(a, b int) string {
	if b < a {
		a, b = b, a
	}
	return strconv.Itoa(a) + "_" + strconv.Itoa(b)
}

// Group returns the key for a group channel.
func Group(groupID int) string {
	return groupPrefix + strconv.Itoa(groupID)
}

// IsGroup reports whether the key addresses a group channel.
func IsGroup(key string) bool {
	return strings.HasPrefix(key, groupPrefix)
}

// ParseGroup extracts the group id from a group channel key.
func ParseGroup(key string) (int, error) {
	if !IsGroup(key) {
		return 0, ErrInvalidKey
	}
	id, err := strconv.Atoi(key[len(groupPrefix):])
	if err != nil || id <= 0 {
		return 0, ErrInvalidKey
	}
	return id, nil
}

// ParseDirect extracts the ordered member pair from a direct channel key.
func ParseDirect(key string) (int, int, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidKey
	}
	a, err := strconv.Atoi(parts[0])
	if err != nil || a <= 0 {
		return 0, 0, ErrInvalidKey
	}
	b, err := strconv.Atoi(parts[1])
	if err != nil || b <= 0 {
		return 0, 0, ErrInvalidKey
	}
	if a >= b {
		return 0, 0, ErrInvalidKey
	}
	return a, b, nil
}

// DirectPeer returns the other member of a direct channel.
func DirectPeer(key string, userID int) (int, error) {
	a, b, err := ParseDirect(key)
	if err != nil {
		return 0, err
	}
	switch userID {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return 0, ErrInvalidKey
}
