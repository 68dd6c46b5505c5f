package domain

// IdentityKind discriminates the concrete identity behind an actor.
type IdentityKind string

const (
	IdentityKindPlatformUser IdentityKind = "PLATFORM_USER"
	IdentityKindStaff        IdentityKind = "STAFF"
	IdentityKindClient       IdentityKind = "CLIENT"
	IdentityKindGuest        IdentityKind = "GUEST"
)

// Identity is the resolved actor behind a request. Exactly one of the
// concrete fields is populated, matching Kind.
type Identity struct {
	Kind         IdentityKind
	PlatformUser *PlatformUser
	Staff        *StaffMember
	Client       *ClientAccount
	GuestEmail   string
}

// OrganizationID returns the client organization the identity belongs to,
// if any.
func (i *Identity) OrganizationID() *string {
	if i == nil || i.Client == nil {
		return nil
	}
	org := i.Client.OrganizationID
	return &org
}
