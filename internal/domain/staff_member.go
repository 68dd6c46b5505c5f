package domain

import "time"

// StaffMember models an internal support operator. UserID links the record
// to a PlatformUser credential; a nil UserID means the member cannot log
// in. The capability flags, not the resolved role, are the source of truth
// for what the member may do.
type StaffMember struct {
	ID                string
	UserID            *string
	FullName          string
	Email             string
	IsActive          bool
	CanReplyTickets   bool
	CanManageContent  bool
	CanAttendMeetings bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasAnyCapability reports whether at least one capability flag is set.
func (s *StaffMember) HasAnyCapability() bool {
	return s.CanReplyTickets || s.CanManageContent || s.CanAttendMeetings
}
