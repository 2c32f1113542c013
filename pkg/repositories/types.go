package repositories

import "errors"

type ErrNotFound struct {
}

func (e *ErrNotFound) Error() string {
	return "not found"
}

func IsNotFound(err error) bool {
	var notFound *ErrNotFound
	return errors.As(err, &notFound)
}

type ErrConflict struct {
}

func (e *ErrConflict) Error() string {
	return "conflict"
}

func IsConflict(err error) bool {
	var conflict *ErrConflict
	return errors.As(err, &conflict)
}
