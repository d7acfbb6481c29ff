package types

import (
	"encoding/json"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// AssetEventRow is one asset_events row. Columns that do not apply to an
// event type stay NULL.
type AssetEventRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	AggregateType string             `bigquery:"aggregate_type"`
	AggregateID   string             `bigquery:"aggregate_id"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	CompanyName   *string            `bigquery:"company_name"`
	HREmail       *string            `bigquery:"hr_email"`
	EmployeeEmail *string            `bigquery:"employee_email"`
	ActorEmail    *string            `bigquery:"actor_email"`
	AssetID       *string            `bigquery:"asset_id"`
	AssetName     *string            `bigquery:"asset_name"`
	Status        *string            `bigquery:"status"`
	Source        *string            `bigquery:"source"`
	Quantity      *int64             `bigquery:"quantity"`
	AmountCents   *int64             `bigquery:"amount_cents"`
	PackageName   *string            `bigquery:"package_name"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}

// AssetEventsSchema matches AssetEventRow column for column.
func AssetEventsSchema() cbigquery.Schema {
	required := func(name string, t cbigquery.FieldType) *cbigquery.FieldSchema {
		return &cbigquery.FieldSchema{Name: name, Type: t, Required: true}
	}
	nullable := func(name string, t cbigquery.FieldType) *cbigquery.FieldSchema {
		return &cbigquery.FieldSchema{Name: name, Type: t}
	}
	return cbigquery.Schema{
		required("event_id", cbigquery.StringFieldType),
		required("event_type", cbigquery.StringFieldType),
		required("aggregate_type", cbigquery.StringFieldType),
		required("aggregate_id", cbigquery.StringFieldType),
		required("occurred_at", cbigquery.TimestampFieldType),
		nullable("company_name", cbigquery.StringFieldType),
		nullable("hr_email", cbigquery.StringFieldType),
		nullable("employee_email", cbigquery.StringFieldType),
		nullable("actor_email", cbigquery.StringFieldType),
		nullable("asset_id", cbigquery.StringFieldType),
		nullable("asset_name", cbigquery.StringFieldType),
		nullable("status", cbigquery.StringFieldType),
		nullable("source", cbigquery.StringFieldType),
		nullable("quantity", cbigquery.IntegerFieldType),
		nullable("amount_cents", cbigquery.IntegerFieldType),
		nullable("package_name", cbigquery.StringFieldType),
		nullable("payload", cbigquery.JSONFieldType),
	}
}

// JSONColumn stores raw as a JSON column value; empty input is NULL.
func JSONColumn(raw json.RawMessage) cbigquery.NullJSON {
	if len(raw) == 0 || string(raw) == "null" {
		return cbigquery.NullJSON{}
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}
}
