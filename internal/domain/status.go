package domain

// StatusKind enumerates the request lifecycle states.
type StatusKind string

const (
	StatusIdle      StatusKind = "idle"
	StatusInFlight  StatusKind = "in_flight"
	StatusFailed    StatusKind = "failed"
	StatusSucceeded StatusKind = "succeeded"
)

// RequestStatus is the global UI status. Message is set only when Failed.
type RequestStatus struct {
	Kind    StatusKind
	Message string
}

func Idle() RequestStatus      { return RequestStatus{Kind: StatusIdle} }
func InFlight() RequestStatus  { return RequestStatus{Kind: StatusInFlight} }
func Succeeded() RequestStatus { return RequestStatus{Kind: StatusSucceeded} }

func Failed(message string) RequestStatus {
	return RequestStatus{Kind: StatusFailed, Message: message}
}

func (s RequestStatus) IsInFlight() bool { return s.Kind == StatusInFlight }
func (s RequestStatus) IsFailed() bool   { return s.Kind == StatusFailed }
