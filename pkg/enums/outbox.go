package enums

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateAssetRequest OutboxAggregateType = "asset_request"
	AggregateAssignment   OutboxAggregateType = "assignment"
	AggregateAffiliation  OutboxAggregateType = "affiliation"
	AggregatePayment      OutboxAggregateType = "payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateAssetRequest,
	AggregateAssignment,
	AggregateAffiliation,
	AggregatePayment,
}

func (a OutboxAggregateType) IsValid() bool {
	return oneOf(a, validAggregateTypes)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, validAggregateTypes)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventRequestCreated       OutboxEventType = "request_created"
	EventRequestApproved      OutboxEventType = "request_approved"
	EventRequestRejected      OutboxEventType = "request_rejected"
	EventAssetAssigned        OutboxEventType = "asset_assigned"
	EventAssetReturned        OutboxEventType = "asset_returned"
	EventAffiliationActivated OutboxEventType = "affiliation_activated"
	EventAffiliationRemoved   OutboxEventType = "affiliation_removed"
	EventPaymentConfirmed     OutboxEventType = "payment_confirmed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventRequestCreated,
	EventRequestApproved,
	EventRequestRejected,
	EventAssetAssigned,
	EventAssetReturned,
	EventAffiliationActivated,
	EventAffiliationRemoved,
	EventPaymentConfirmed,
}

func (e OutboxEventType) String() string {
	return string(e)
}

func (e OutboxEventType) IsValid() bool {
	return oneOf(e, validOutboxEventTypes)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, validOutboxEventTypes)
}
