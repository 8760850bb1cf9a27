package event

// Type identifies the type of client event
type Type string

const (
	// TypeAuthExpired is published when the backend answers 401; the
	// session has already been cleared when handlers run.
	TypeAuthExpired          Type = "auth.expired"
	TypeTaskApproved         Type = "task.approved"
	TypeApplicationWithdrawn Type = "application.withdrawn"
	TypeFileUploaded         Type = "file.uploaded"
	TypeReportExported       Type = "report.exported"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeAuthExpired,
		TypeTaskApproved,
		TypeApplicationWithdrawn,
		TypeFileUploaded,
		TypeReportExported:
		return true
	default:
		return false
	}
}
