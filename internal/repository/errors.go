package repository

import "errors"

// ErrNotFound indicates the requested entity does not exist in the backing store.
var ErrNotFound = errors.New("entity not found")

// ErrDuplicate indicates a uniqueness constraint was violated on insert.
var ErrDuplicate = errors.New("entity already exists")
