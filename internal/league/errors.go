package league

import (
	"errors"

	"github.com/ZJUSCT/MusicLeague/internal/database"
)

// Every rejection wraps exactly one of these, with a message naming the
// precondition that failed.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidWindow     = errors.New("invalid round window")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPhaseClosed       = errors.New("phase closed")
	ErrNotFound          = errors.New("not found")
	ErrSelfVote          = errors.New("self vote forbidden")
	ErrInvalidPoints     = errors.New("invalid points")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
)

// storageErr maps storage sentinels onto the league taxonomy and leaves any
// other error untouched.
func storageErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case database.IsNotFound(err):
		return &kindError{kind: ErrNotFound, msg: what + " not found"}
	case database.IsDuplicate(err):
		return &kindError{kind: ErrConflict, msg: what + " already exists"}
	default:
		return err
	}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.kind.Error() + ": " + e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func fail(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}
