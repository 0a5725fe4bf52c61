package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateStitch  = errors.New("stitch name already exists")
	ErrDuplicateCatalog = errors.New("catalog already exists")
	ErrReadOnly         = errors.New("catalog is read-only")
	ErrInvalidInput     = errors.New("invalid input")
)
