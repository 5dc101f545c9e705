package models

// InviteStatus tracks an invitation through its acceptance state machine:
// pending -> accepted, or pending -> expired. There is no path out of
// accepted or expired.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusExpired  InviteStatus = "expired"
)

// InviteMode distinguishes how an invitation is delivered.
type InviteMode string

const (
	// InviteModeOpen is a shareable code: anyone holding it may accept
	// until it expires or is consumed.
	InviteModeOpen InviteMode = "open"

	// InviteModeEmail binds the invitation to a single recipient address
	// and carries a signed link.
	InviteModeEmail InviteMode = "email"
)

// IsValid returns true if the mode is a known value.
func (m InviteMode) IsValid() bool {
	return m == InviteModeOpen || m == InviteModeEmail
}
