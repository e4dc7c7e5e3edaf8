package desktop

import "errors"

var (
	ErrNotFound  = errors.New("desktop: not found")
	ErrInvalidID = errors.New("desktop: invalid id")
	ErrDuplicate = errors.New("desktop: duplicate id")
)
