package models

import (
	"errors"
	"fmt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthMode string

const (
	AuthModeNone     AuthMode = ""
	AuthModePassword AuthMode = "password"
	AuthModeToken    AuthMode = "token"
)

type Credentials struct {
	// Customer API key, required by both modes
	ClientAccessKey string
	// User API key of the web service account
	UserAccessKey string
	UserName      string
	Password      string
	// Bearer token, replaces the user name, password and user API key
	Token string
}

func (c Credentials) Mode() AuthMode {
	password := c.UserName != "" || c.Password != "" || c.UserAccessKey != ""
	switch {
	case password && c.Token == "":
		return AuthModePassword
	case c.Token != "" && !password:
		return AuthModeToken
	}
	return AuthModeNone
}

// Check that exactly one authentication mode is completely supplied
func (c Credentials) Validate() error {
	if c.ClientAccessKey == "" {
		return fmt.Errorf("%w: missing client access key", ErrInvalidCredentials)
	}
	switch c.Mode() {
	case AuthModeToken:
		return nil
	case AuthModePassword:
		missing := []string{}
		if c.UserName == "" {
			missing = append(missing, "username")
		}
		if c.Password == "" {
			missing = append(missing, "password")
		}
		if c.UserAccessKey == "" {
			missing = append(missing, "user access key")
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: missing %v", ErrInvalidCredentials, missing)
		}
		return nil
	}
	if c.Token != "" {
		return fmt.Errorf("%w: token and password credentials are mutually exclusive", ErrInvalidCredentials)
	}
	return fmt.Errorf("%w: either a token or username and password are required", ErrInvalidCredentials)
}
