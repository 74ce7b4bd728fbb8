package domain

// UserRef is the identity returned by the identity provider.
type UserRef struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Session is the authenticated-user context of one storefront visitor.
type Session struct {
	IsAuthenticated bool     `json:"isAuthenticated"`
	User            *UserRef `json:"user"`
}

// UserID returns the authenticated user id or "".
func (s Session) UserID() string {
	if !s.IsAuthenticated || s.User == nil {
		return ""
	}
	return s.User.ID
}
