package domain

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	Username    string
	Authorities []string
}
