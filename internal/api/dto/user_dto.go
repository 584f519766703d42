package dto

import (
	"net/mail"
	"strings"
	"time"

	"github.com/spec-kit/user-service/internal/domain"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// DefaultLangKey applies when a request carries no language.
const DefaultLangKey = "en"

// ManagedUserRequest is the payload for creating and updating users.
// A request without id asks for a new user.
type ManagedUserRequest struct {
	ID          *string  `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	ImageURL    string   `json:"image_url"`
	LangKey     string   `json:"lang_key"`
	Activated   bool     `json:"activated"`
	Authorities []string `json:"authorities"`
}

// UserResponse is the outward view of a user. It never exposes credentials.
// Authorities are present only when they were loaded.
type UserResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	ImageURL       string    `json:"image_url"`
	LangKey        string    `json:"lang_key"`
	Activated      bool      `json:"activated"`
	Authorities    []string  `json:"authorities,omitempty"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedBy string    `json:"last_modified_by"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

// HasID reports whether the request names an existing user.
func (r *ManagedUserRequest) HasID() bool {
	return r.ID != nil && *r.ID != ""
}

// Validate checks field shapes. Uniqueness is not its concern.
func (r *ManagedUserRequest) Validate() error {
	details := map[string]any{}

	if !domain.ValidUsername(r.Username) {
		details["username"] = "must be 1-50 characters of letters, digits or _'.@-"
	}
	if l := len(r.Email); l < 5 || l > 100 {
		details["email"] = "must be 5-100 characters"
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		details["email"] = "must be a valid address"
	}
	if len(r.FirstName) > 50 {
		details["first_name"] = "must be at most 50 characters"
	}
	if len(r.LastName) > 50 {
		details["last_name"] = "must be at most 50 characters"
	}
	if len(r.ImageURL) > 256 {
		details["image_url"] = "must be at most 256 characters"
	}
	if r.LangKey != "" && (len(r.LangKey) < 2 || len(r.LangKey) > 6) {
		details["lang_key"] = "must be 2-6 characters"
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("invalid user payload", details)
	}
	return nil
}

// ToNewUser builds the entity for a create request. Id, credentials and
// activation state are the caller's to fill in.
func ToNewUser(req *ManagedUserRequest, actor string, now time.Time) *domain.User {
	langKey := req.LangKey
	if langKey == "" {
		langKey = DefaultLangKey
	}
	return &domain.User{
		Username:       domain.NormalizeUsername(req.Username),
		Email:          strings.TrimSpace(req.Email),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		ImageURL:       req.ImageURL,
		LangKey:        langKey,
		CreatedBy:      actor,
		CreatedAt:      now,
		LastModifiedBy: actor,
		LastModifiedAt: now,
	}
}

// ApplyToUser copies the editable fields of req onto a copy of user.
func ApplyToUser(req *ManagedUserRequest, user domain.User, actor string, now time.Time) *domain.User {
	user.Username = domain.NormalizeUsername(req.Username)
	user.Email = strings.TrimSpace(req.Email)
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.ImageURL = req.ImageURL
	if req.LangKey != "" {
		user.LangKey = req.LangKey
	}
	user.Activated = req.Activated
	if user.Activated {
		user.ActivationKey = nil
	}
	user.LastModifiedBy = actor
	user.LastModifiedAt = now
	return &user
}

// NewUserResponse projects a user without touching its authorities.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		ImageURL:       user.ImageURL,
		LangKey:        user.LangKey,
		Activated:      user.Activated,
		CreatedBy:      user.CreatedBy,
		CreatedAt:      user.CreatedAt,
		LastModifiedBy: user.LastModifiedBy,
		LastModifiedAt: user.LastModifiedAt,
	}
}

// NewUserResponseWithAuthorities projects a user together with its loaded role set.
func NewUserResponseWithAuthorities(uwa *domain.UserWithAuthorities) UserResponse {
	resp := NewUserResponse(uwa.User)
	resp.Authorities = append([]string{}, uwa.Authorities...)
	return resp
}
