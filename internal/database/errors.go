package database

import "errors"

// ErrNotFound is returned by Open when the database does not exist and
// creation was not requested.
var ErrNotFound = errors.New("database not found")
