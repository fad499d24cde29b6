// Package repository defines data access for the freight API.  Sentinel
// errors shared by several repositories live here so handlers can map
// storage outcomes to HTTP statuses without string matching.
package repository

import "errors"

// ErrConflict is returned when a delete cannot proceed because dependent
// rows exist, such as removing a vehicle that still has transport records.
// Handlers translate it into a 409.
var ErrConflict = errors.New("conflict")
