// Package identity models who a request acts for: an authenticated user,
// an anonymous visitor holding a cart token, or nobody at all. Session
// presence always wins over a cart token.
package identity

type kind int

const (
	none kind = iota
	user
	anonymous
)

type Identity struct {
	kind   kind
	userID uint
	token  string
}

func None() Identity {
	return Identity{kind: none}
}

func User(id uint) Identity {
	return Identity{kind: user, userID: id}
}

func Anonymous(token string) Identity {
	if token == "" {
		return None()
	}
	return Identity{kind: anonymous, token: token}
}

func (i Identity) UserID() (uint, bool) {
	return i.userID, i.kind == user
}

func (i Identity) Token() (string, bool) {
	return i.token, i.kind == anonymous
}

func (i Identity) IsNone() bool {
	return i.kind == none
}
