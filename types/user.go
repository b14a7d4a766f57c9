package types

import "time"

// UserRole is the local role of an account.
type UserRole string

const (
	UserRoleGuest UserRole = "GUEST"
	UserRoleUser  UserRole = "USER"
	UserRoleGuide UserRole = "GUIDE"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleGuest, UserRoleUser, UserRoleGuide:
		return true
	default:
		return false
	}
}

// UserProfile is the locally cached identity of a signed-in user.
//
// Revision increases on every local profile mutation; it is the token the
// cloud reconciliation uses to avoid clobbering an optimistic local update
// that has not been confirmed by the backend yet. NeedsSync marks records
// with outstanding local edits.
type UserProfile struct {
	ID           string     `json:"id"`
	ExternalID   string     `json:"externalId"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone,omitempty"`
	Role         UserRole   `json:"role"`
	NeedsSync    bool       `json:"needsSync"`
	Revision     int64      `json:"revision"`
	LastSignInAt *time.Time `json:"lastSignInAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Authenticated reports whether the profile may act on tours.
func (p *UserProfile) Authenticated() bool {
	return p != nil && p.ID != "" && p.Role != UserRoleGuest
}

// IsGuide reports whether the profile holds the guide role.
func (p *UserProfile) IsGuide() bool {
	return p != nil && p.Role == UserRoleGuide
}

// Session is the locally issued session returned by sign-in.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Profile   *UserProfile `json:"profile"`
}
