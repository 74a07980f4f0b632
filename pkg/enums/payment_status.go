package enums

// PaymentStatus is the processor outcome recorded on an order. Orders start
// pending and settle once as paid or failed.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

var paymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed}

func (p PaymentStatus) String() string { return string(p) }

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parseFrom(paymentStatuses, "payment status", value)
}
