package attachments

import "errors"

var (
	ErrRegistryClosed = errors.New("registry closed")
	ErrEmptyPath      = errors.New("attachment path is empty")
)
