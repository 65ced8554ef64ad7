package domain

type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SessionIdentity is the resolved, trusted token/user pair representing who
// is making requests. It exists as a unit: a token without a verified user
// (or the reverse) is never exposed.
type SessionIdentity struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
