package enums

import "testing"

func TestParseUserRoleIsCaseInsensitive(t *testing.T) {
	role, err := ParseUserRole(" HR ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != UserRoleHR {
		t.Fatalf("expected hr, got %s", role)
	}
	if _, err := ParseUserRole("admin"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestParseAssetTypeKeepsDisplayValues(t *testing.T) {
	if _, err := ParseAssetType("Non-returnable"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseAssetType("returnable"); err == nil {
		t.Fatalf("expected lower-case value to be rejected")
	}
}

func TestRequestStatusTerminal(t *testing.T) {
	if RequestStatusPending.IsTerminal() {
		t.Fatalf("pending must not be terminal")
	}
	if !RequestStatusApproved.IsTerminal() || !RequestStatusRejected.IsTerminal() {
		t.Fatalf("approved and rejected must be terminal")
	}
}

func TestOutboxEventTypesRoundTrip(t *testing.T) {
	for _, evt := range validOutboxEventTypes {
		parsed, err := ParseOutboxEventType(string(evt))
		if err != nil || parsed != evt {
			t.Fatalf("event %s failed to parse: %v", evt, err)
		}
	}
	if OutboxEventType("order_created").IsValid() {
		t.Fatalf("unexpected valid event type")
	}
}

func TestParseStockFilter(t *testing.T) {
	if _, err := ParseStockFilter("out"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseStockFilter("low"); err == nil {
		t.Fatalf("expected error for unknown stock filter")
	}
}

func TestParseHelpersRejectUnknownValues(t *testing.T) {
	if _, err := ParsePaymentStatus("refunded"); err == nil {
		t.Fatalf("expected error for unknown payment status")
	}
	status, err := ParseAffiliationStatus("inactive")
	if err != nil || status != AffiliationStatusInactive {
		t.Fatalf("unexpected parse result %q %v", status, err)
	}
	if len(OutboxDLQErrorReasons()) != 2 || !OutboxDLQReasonNonRetryable.IsValid() {
		t.Fatalf("unexpected dead letter reasons %v", OutboxDLQErrorReasons())
	}
}
