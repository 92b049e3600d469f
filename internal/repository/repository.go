package repository

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, memory) inside this directory.

import "errors"

var (
	// ErrNotFound is returned when no record, live or tombstoned, exists for an id.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned by a conditional create when the id is already taken.
	ErrConflict = errors.New("record already exists")
)
