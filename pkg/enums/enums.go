// Package enums holds the closed string sets persisted on orders, outbox
// rows and access tokens.
package enums

import (
	"fmt"
	"slices"
)

func parseFrom[T ~string](known []T, kind, raw string) (T, error) {
	if v := T(raw); slices.Contains(known, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
