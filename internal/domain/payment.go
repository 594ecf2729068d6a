package domain

// PaymentStatus represents the settlement state of a booking as reported by the payment gateway.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// ParsePaymentStatus converts a wire value into a PaymentStatus.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusRefunded, PaymentStatusFailed:
		return PaymentStatus(s), nil
	default:
		return "", ErrUnknownPaymentStatus
	}
}
