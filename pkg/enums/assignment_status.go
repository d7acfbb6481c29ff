package enums

type AssignmentStatus string

const (
	AssignmentStatusAssigned AssignmentStatus = "assigned"
	AssignmentStatusReturned AssignmentStatus = "returned"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusAssigned,
	AssignmentStatusReturned,
}

func (s AssignmentStatus) String() string {
	return string(s)
}

func (s AssignmentStatus) IsValid() bool {
	return oneOf(s, validAssignmentStatuses)
}

func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	return parse("assignment status", value, validAssignmentStatuses)
}

// AssignmentSource records how an assignment came to exist.
type AssignmentSource string

const (
	AssignmentSourceRequest AssignmentSource = "request"
	AssignmentSourceDirect  AssignmentSource = "direct"
)

// ReturnMode distinguishes employee returns from bulk returns on removal.
type ReturnMode string

const (
	ReturnModeEmployee ReturnMode = "employee"
	ReturnModeRemoval  ReturnMode = "affiliation_removal"
)
