package offline

import "fmt"

// ValidationError rejects bad input before anything touches the network or
// the local database.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
