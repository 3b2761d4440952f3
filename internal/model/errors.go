package model

import (
	"errors"
	"fmt"
)

// UserInputError marks a failure caused by the user's own input: an
// unparseable date, an unknown month, an ambiguous transaction. The
// coordinator turns it into a friendly warning reply instead of an error
// reply.
type UserInputError struct {
	Msg string
}

func (e *UserInputError) Error() string {
	return e.Msg
}

// UserInputf builds a UserInputError with fmt-style formatting.
func UserInputf(format string, args ...interface{}) error {
	return &UserInputError{Msg: fmt.Sprintf(format, args...)}
}

// IsUserInput reports whether err (or anything it wraps) is a
// UserInputError.
func IsUserInput(err error) bool {
	var uie *UserInputError
	return errors.As(err, &uie)
}
