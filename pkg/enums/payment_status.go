package enums

// PaymentStatus records the processor outcome stored on a payment row.
type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusNoCharge PaymentStatus = "no_payment_required"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPaid,
	PaymentStatusUnpaid,
	PaymentStatusNoCharge,
}

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) IsValid() bool {
	return oneOf(p, validPaymentStatuses)
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse("payment status", value, validPaymentStatuses)
}
