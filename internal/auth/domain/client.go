package domain

// ClientType distinguishes browser/SPA clients from clients that can keep a
// secret.
type ClientType string

const (
	ClientTypePublic       ClientType = "public"
	ClientTypeConfidential ClientType = "confidential"
)

// Client is a registered OAuth2 client. Records come from the startup-loaded
// registry and are immutable at runtime, so concurrent reads need no locking.
type Client struct {
	ID   string
	Name string

	// SecretHash is the argon2id hash of the client secret. Empty for public
	// clients.
	SecretHash string

	// RedirectURIs is the ordered allow-list. An entry may contain a single
	// "*" path segment, which the registry compiles into an anchored regex.
	RedirectURIs []string

	GrantTypes    []string
	ResponseTypes []string
	Scopes        []string
	Type          ClientType
}

// Public reports whether the client cannot authenticate itself.
func (c Client) Public() bool { return c.Type == ClientTypePublic }

// AllowsGrantType reports whether gt is in the client's registered set.
func (c Client) AllowsGrantType(gt string) bool {
	for _, g := range c.GrantTypes {
		if g == gt {
			return true
		}
	}
	return false
}

// AllowsResponseType reports whether rt is in the client's registered set.
func (c Client) AllowsResponseType(rt string) bool {
	for _, r := range c.ResponseTypes {
		if r == rt {
			return true
		}
	}
	return false
}
