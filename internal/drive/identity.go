package drive

import "context"

// Verifier resolves a bearer credential to a principal ID. Every failure,
// whatever its cause, wraps ErrUnauthenticated.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Actor is whoever issues a request: an authenticated principal, the holder
// of a share-link token, or both.
type Actor struct {
	UserID    string
	LinkToken string
}

// UserActor returns an actor for an authenticated principal.
func UserActor(userID string) Actor { return Actor{UserID: userID} }

// LinkActor returns an actor presenting a share-link token.
func LinkActor(token string) Actor { return Actor{LinkToken: token} }

// Authenticated reports whether the actor carries a verified principal.
func (a Actor) Authenticated() bool { return a.UserID != "" }

// Anonymous reports whether the actor carries no credential at all.
func (a Actor) Anonymous() bool { return a.UserID == "" && a.LinkToken == "" }
