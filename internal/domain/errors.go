package domain

import "errors"

var (
	// ErrInvalidTimeOfDay is returned when a start time is not a 24h HH:MM value.
	ErrInvalidTimeOfDay = errors.New("start time must be HH:MM in 24-hour format")

	// ErrInvalidDate is returned when a calendar date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

	// ErrInvalidDuration is returned when a service duration is not a positive number of hours.
	ErrInvalidDuration = errors.New("duration must be a positive number of hours")

	// ErrCrossesMidnight is returned when a slot would end after the end of its scheduled day.
	ErrCrossesMidnight = errors.New("booking must end on its scheduled date")

	// ErrUnknownStatus is returned when a booking status string is not recognised.
	ErrUnknownStatus = errors.New("unknown booking status")

	// ErrUnknownPaymentStatus is returned when a payment status string is not recognised.
	ErrUnknownPaymentStatus = errors.New("unknown payment status")

	// ErrUnknownRole is returned when a role claim is neither customer nor cleaner.
	ErrUnknownRole = errors.New("unknown role")
)
