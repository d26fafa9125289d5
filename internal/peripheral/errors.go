package peripheral

import (
	"errors"
	"fmt"
)

var errNoDriver = errors.New("no sensor driver supplied")

func errInvalidUUID(raw string, err error) error {
	return fmt.Errorf("invalid UUID %q: %w", raw, err)
}

func errAdapter(op string, err error) error {
	return fmt.Errorf("failed to %s: %w", op, err)
}
