package session

import "errors"

// ErrNotFound is returned by Store.Get when no session exists for an id.
var ErrNotFound = errors.New("session: not found")

// ErrAlreadyExists is returned by Store.Create when the id is already in use.
var ErrAlreadyExists = errors.New("session: already exists")
