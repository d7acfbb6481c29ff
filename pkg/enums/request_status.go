package enums

// RequestStatus tracks an asset request. Approved and rejected are terminal.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusApproved,
	RequestStatusRejected,
}

func (s RequestStatus) String() string {
	return string(s)
}

func (s RequestStatus) IsValid() bool {
	return oneOf(s, validRequestStatuses)
}

// IsTerminal reports whether no further decision can be applied.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

func ParseRequestStatus(value string) (RequestStatus, error) {
	return parse("request status", value, validRequestStatuses)
}
