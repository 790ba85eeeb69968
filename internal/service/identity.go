package service

// Identity names the owner of a cart: an authenticated user or an anonymous
// browsing session. Exactly one field is set; it is threaded explicitly
// through every cart and checkout operation, never read from globals.
type Identity struct {
	UserID    string
	SessionID string
}

func UserIdentity(userID string) Identity   { return Identity{UserID: userID} }
func SessionIdentity(token string) Identity { return Identity{SessionID: token} }

func (id Identity) IsZero() bool {
	return id.UserID == "" && id.SessionID == ""
}
