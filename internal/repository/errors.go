// Package repository implements persistence over MySQL.  This file defines
// sentinel errors shared by the repositories so handlers can map failures
// to HTTP responses without string matching.
package repository

import "errors"

// ErrEmailExists is returned when a user insert violates the unique email
// constraint.
var ErrEmailExists = errors.New("email already exists")

// ErrStoreExists is returned when a store insert violates the store_id
// primary key.
var ErrStoreExists = errors.New("store id already exists")
