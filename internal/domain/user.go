package domain

import (
	"regexp"
	"strings"
	"time"
)

// AnonymousUsername is the system account that never shows up in listings.
const AnonymousUsername = "anonymoususer"

// User is the persisted account. Authorities are not part of the core row;
// they are loaded separately through the repository when a caller asks for them.
type User struct {
	ID             string
	Username       string
	Email          string
	FirstName      string
	LastName       string
	ImageURL       string
	LangKey        string
	Activated      bool
	ActivationKey  *string
	PasswordHash   string
	CreatedBy      string
	CreatedAt      time.Time
	LastModifiedBy string
	LastModifiedAt time.Time
}

// UserWithAuthorities pairs a user with its explicitly loaded role set.
type UserWithAuthorities struct {
	User        *User
	Authorities []string
}

// NormalizeUsername returns the canonical stored form of a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Username constraints shared by path routing and payload validation.
const (
	UsernamePattern   = `^[_'.@A-Za-z0-9-]*$`
	UsernameMaxLength = 50
)

var usernameRegexp = regexp.MustCompile(UsernamePattern)

// ValidUsername reports whether s is a non-empty username matching UsernamePattern.
func ValidUsername(s string) bool {
	return s != "" && len(s) <= UsernameMaxLength && usernameRegexp.MatchString(s)
}
