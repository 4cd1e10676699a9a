package models

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/cases"
)

// User is an identity record created by the identity provider at sign-up.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validation errors for users.
var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameInvalid  = errors.New("username must be 3-32 characters of letters, numbers, dots, dashes or underscores")
	ErrEmailInvalid     = errors.New("email address is invalid")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,32}$`)

// Validate validates the user fields.
func (u *User) Validate() error {
	username := strings.TrimSpace(u.Username)
	if username == "" {
		return fieldError("username", ErrUsernameRequired)
	}
	if !usernamePattern.MatchString(username) {
		return fieldError("username", ErrUsernameInvalid)
	}
	if u.Email != "" {
		at := strings.Index(u.Email, "@")
		if at < 1 || at == len(u.Email)-1 || strings.ContainsAny(u.Email, " \t") {
			return fieldError("email", ErrEmailInvalid)
		}
	}
	return nil
}

// SearchKey folds case and transliterates accents so that "José" and
// "JOSE" both become "jose". Every user search path compares SearchKey
// values.
func SearchKey(s string) string {
	return cases.Fold().String(unidecode.Unidecode(s))
}

// SearchText is the folded form of the fields user search matches on.
func (u *User) SearchText() string {
	return SearchKey(u.Username) + "\n" + SearchKey(u.Email)
}
