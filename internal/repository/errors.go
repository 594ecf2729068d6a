package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrSlotTaken is returned by AtomicInsert when an active booking of the same
	// cleaner already overlaps the new booking's slot at commit time.
	ErrSlotTaken = errors.New("cleaner already booked for an overlapping slot")

	// ErrStaleVersion is returned when a conditional update finds a newer version.
	ErrStaleVersion = errors.New("booking was modified concurrently")
)
