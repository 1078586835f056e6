package orders

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// The store does not restrict which status may follow which; every change is
// recorded in the history ledger and transition policy stays with the caller.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PayCreditCard     PaymentMethod = "CREDIT_CARD"
	PayDebitCard      PaymentMethod = "DEBIT_CARD"
	PayPaypal         PaymentMethod = "PAYPAL"
	PayBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PayCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PayCreditCard, PayDebitCard, PayPaypal, PayBankTransfer, PayCashOnDelivery:
		return true
	}
	return false
}
