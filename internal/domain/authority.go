package domain

// Authority names recognised out of the box.
const (
	AuthorityAdmin     = "ROLE_ADMIN"
	AuthorityUser      = "ROLE_USER"
	AuthorityAnonymous = "ROLE_ANONYMOUS"
)

// HasAuthority reports whether name is present in authorities.
func HasAuthority(authorities []string, name string) bool {
	for _, a := range authorities {
		if a == name {
			return true
		}
	}
	return false
}
