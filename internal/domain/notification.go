package domain

// Notification events
const (
	EventLoanCreated     = "loan_created"
	EventLoanUpdated     = "loan_updated"
	EventLoanAccepted    = "loan_accepted"
	EventLoanRejected    = "loan_rejected"
	EventLoanCancelled   = "loan_cancelled"
	EventLoanDeleted     = "loan_deleted"
	EventPaymentRecorded = "payment_recorded"
)

// Notification is the snapshot handed to the notifier after a mutation.
// Loan is projected from the recipient's point of view.
type Notification struct {
	Event     string       `json:"event"`
	Actor     string       `json:"actor"`
	ActorRole string       `json:"actorRole"`
	Loan      LoanView     `json:"loan"`
	Payment   *PaymentView `json:"payment,omitempty"`
}

// Delivery reports the outcome of one notification attempt.
// Skipped is set when notifications are switched off and nothing was tried.
type Delivery struct {
	Delivered bool
	Skipped   bool
	Channel   string
	Message   string
}
