package domain

// Identity is the resolved owner of a session, as reported by the
// OAuth provider.
type Identity struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}
