package errors

import (
	baseErrors "errors"
)

// Is detects whether the error is equal to a given error. Errors
// are considered equal by this function if they are matched by errors.Is
// or if their contained errors are matched through errors.Is.
func Is(e error, original error) bool {
	if baseErrors.Is(e, original) {
		return true
	}

	if e, ok := e.(*Error); ok {
		return Is(e.Err, original)
	}

	if original, ok := original.(*Error); ok {
		return Is(e, original.Err)
	}

	return false
}

// As finds the first error in err's tree that matches target. See the
// standard library's errors.As.
func As(err error, target any) bool {
	return baseErrors.As(err, target)
}
