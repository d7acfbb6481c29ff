package enums

type AffiliationStatus string

const (
	AffiliationStatusActive   AffiliationStatus = "active"
	AffiliationStatusInactive AffiliationStatus = "inactive"
)

var validAffiliationStatuses = []AffiliationStatus{
	AffiliationStatusActive,
	AffiliationStatusInactive,
}

func (s AffiliationStatus) String() string {
	return string(s)
}

func (s AffiliationStatus) IsValid() bool {
	return oneOf(s, validAffiliationStatuses)
}

func ParseAffiliationStatus(value string) (AffiliationStatus, error) {
	return parse("affiliation status", value, validAffiliationStatuses)
}
