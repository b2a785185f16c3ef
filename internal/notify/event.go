package notify

import "context"

// Kind identifies a notification and doubles as the broker routing key.
type Kind string

const (
	KindBookingConfirmed Kind = "booking.confirmed"
	KindBookingCanceled  Kind = "booking.canceled"
	KindDiagnosisReady   Kind = "diagnosis.ready"
	KindPasswordChanged  Kind = "password.changed"
)

// Keys used in Event.Data.
const (
	FieldName         = "name"
	FieldDoctor       = "doctor"
	FieldSpecialty    = "specialty"
	FieldTime         = "time"
	FieldReason       = "reason"
	FieldCancelReason = "cancel_reason"
	FieldDiagnosis    = "diagnosis"
	FieldNotes        = "notes"
)

// Event is a single email notification addressed to one recipient.
type Event struct {
	Kind Kind              `json:"kind"`
	To   string            `json:"to"`
	Data map[string]string `json:"data"`
}

// Dispatcher hands events off for delivery outside the request path.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// Deliverer renders and sends one event synchronously.
type Deliverer interface {
	Deliver(ctx context.Context, event Event) error
}
