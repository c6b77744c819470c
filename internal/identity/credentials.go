package identity

import "context"

// Credentials identify the caller towards the persistence backend.
type Credentials struct {
	UID   string
	Token string
}

type credentialsKey struct{}

func WithCredentials(ctx context.Context, uid, token string) context.Context {
	return context.WithValue(ctx, credentialsKey{}, Credentials{UID: uid, Token: token})
}

func CredentialsFromContext(ctx context.Context) (Credentials, bool) {
	c, ok := ctx.Value(credentialsKey{}).(Credentials)
	return c, ok && c.UID != ""
}
