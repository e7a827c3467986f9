package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsafeID is returned for item ids that cannot be used as a single path segment.
var ErrUnsafeID = errors.New("unsafe item id")

// ValidateID checks that id can name a file or directory directly under an
// output root. Ids are otherwise opaque.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrUnsafeID)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrUnsafeID, id)
	case strings.ContainsAny(id, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator or NUL", ErrUnsafeID, id)
	}
	return nil
}
