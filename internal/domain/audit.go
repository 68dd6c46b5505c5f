package domain

// IssueSeverity grades a consistency audit finding.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "ERROR"
	SeverityWarning IssueSeverity = "WARNING"
)

// AuditIssue is one finding from the staff consistency audit. The audit
// is advisory: it reports drift between roles and capability flags but
// never corrects anything.
type AuditIssue struct {
	StaffID   string
	StaffName string
	Severity  IssueSeverity
	Code      string
	Message   string
}
