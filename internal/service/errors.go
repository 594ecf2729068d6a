package service

import "errors"

var (
	// ErrBookingNotFound is returned when a booking ID does not exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrServiceNotFound is returned when the requested service listing does not exist.
	ErrServiceNotFound = errors.New("service not found")

	// ErrNotBookingParty is returned when the caller is neither the customer nor the cleaner of a booking.
	ErrNotBookingParty = errors.New("not authorized to access this booking")

	// ErrRoleNotPermitted is returned when a party's role may not request the target status.
	ErrRoleNotPermitted = errors.New("role not permitted to perform this status change")

	// ErrCustomerOnly is returned when a non-customer tries to create a booking.
	ErrCustomerOnly = errors.New("only customers can create bookings")

	// ErrServiceNotOwnedByCleaner is returned when the service does not belong to the requested cleaner.
	ErrServiceNotOwnedByCleaner = errors.New("service does not belong to this cleaner")

	// ErrServiceInactive is returned when booking a deactivated service.
	ErrServiceInactive = errors.New("service is not active")

	// ErrDateInPast is returned when the scheduled date is before today.
	ErrDateInPast = errors.New("scheduled date cannot be in the past")

	// ErrInvalidRequest is returned when required identifiers are missing.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidAddress is returned when the service address fails validation.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInstructionsTooLong is returned when special instructions exceed the limit.
	ErrInstructionsTooLong = errors.New("special instructions must be at most 500 characters")

	// ErrInvalidPagination is returned for negative skip or out-of-range limit.
	ErrInvalidPagination = errors.New("invalid pagination parameters")

	// ErrSlotUnavailable is returned when the cleaner already has an overlapping booking.
	ErrSlotUnavailable = errors.New("cleaner is not available at this time")

	// ErrConcurrentUpdate is returned when a status update keeps losing to concurrent writers.
	ErrConcurrentUpdate = errors.New("booking was modified concurrently, please retry")

	// ErrInvalidTransition is returned when the booking cannot move from its current status to the target.
	ErrInvalidTransition = errors.New("invalid status transition")
)
