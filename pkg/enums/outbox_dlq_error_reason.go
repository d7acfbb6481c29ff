package enums

// OutboxDLQErrorReason explains why an outbox event was parked in
// outbox_dlq instead of being published.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
}

// OutboxDLQErrorReasons lists every reason in a stable order.
func OutboxDLQErrorReasons() []OutboxDLQErrorReason {
	return append([]OutboxDLQErrorReason(nil), validOutboxDLQErrorReasons...)
}

func (r OutboxDLQErrorReason) String() string {
	return string(r)
}

func (r OutboxDLQErrorReason) IsValid() bool {
	return oneOf(r, validOutboxDLQErrorReasons)
}
