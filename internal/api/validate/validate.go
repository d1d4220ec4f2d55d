package validate

import (
	"fmt"
	"regexp"
	"strconv"
)

// IDs are opaque but bounded: letters, digits, underscore, hyphen, 1-64 chars.
var idRx = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

func UserID(v string) error {
	if v == "" {
		return fmt.Errorf("userId is required")
	}
	if !idRx.MatchString(v) {
		return fmt.Errorf("userId contains invalid characters")
	}
	return nil
}

func ContentID(v string) error {
	if v == "" {
		return fmt.Errorf("contentId is required")
	}
	if !idRx.MatchString(v) {
		return fmt.Errorf("contentId contains invalid characters")
	}
	return nil
}

// OptionalPositiveInt parses a query value; empty means 0 (use the default).
func OptionalPositiveInt(field, v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", field)
	}
	return n, nil
}
