package revision

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

const textCodeNoDisplayerFound = "NO_REVISION_DISPLAYER"

// ErrNoDisplayerFound is matched by every NoDisplayerFoundError.
var ErrNoDisplayerFound = goerrors.New("no revision displayer found", goerrors.CategoryNotFound).
	WithTextCode(textCodeNoDisplayerFound).
	WithCode(goerrors.CodeNotFound)

// ErrMissingPeopleLookup is returned when a displayer needs a name but no lookup was configured.
var ErrMissingPeopleLookup = goerrors.New("revision people lookup not configured", goerrors.CategoryInternal)

// NoDisplayerFoundError is returned when the ancestor chain of Type has no
// displayer registered for Field.
type NoDisplayerFoundError struct {
	Type  string
	Field string
	// Displayer is the identifier that was looked up, e.g. SuspendedAtDisplayer.
	Displayer string
}

func (e *NoDisplayerFoundError) Error() string {
	return fmt.Sprintf("no displayers could be found for %s.%s (%s)", e.Type, e.Field, e.Displayer)
}

func (e *NoDisplayerFoundError) Unwrap() error {
	return ErrNoDisplayerFound
}
