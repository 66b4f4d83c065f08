package user

// Principal is the authenticated identity making a request.
type Principal struct {
	UserID   string
	Username string
	Role     string
}

// IsAdmin reports whether the principal carries the admin role claim.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Owns reports whether u is the principal's own record. The id from the
// token is authoritative since a user may rename themselves mid-session;
// the username is only used when no id is known.
func (p Principal) Owns(u User) bool {
	if p.UserID != "" {
		return p.UserID == u.ID
	}
	return p.Username != "" && p.Username == u.Username
}

// CanModify is true for the record owner and for admins.
func (p Principal) CanModify(u User) bool {
	return p.IsAdmin() || p.Owns(u)
}
