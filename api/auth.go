package api

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/genroar/pharmacy-client/client"
	"github.com/genroar/pharmacy-client/session"
)

type AuthService struct {
	c *client.Client
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegistrationInput struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	BranchID  string `json:"branch_id,omitempty"`
}

// LoginResult is the caller-facing outcome of a login attempt. A disabled
// account is a distinguished non-error outcome so the UI can render its
// dedicated flow instead of a generic failure.
type LoginResult struct {
	User            *session.User
	AccountDisabled bool
	Message         string
}

type loginResponse struct {
	Token string        `json:"token"`
	User  *session.User `json:"user"`
}

// Login authenticates against the backend and, on success, establishes the
// session for all subsequent calls. On failure the session is untouched and
// the server's message travels in the returned error.
func (s *AuthService) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	var out loginResponse
	res, err := s.c.Do(ctx, http.MethodPost, PathLogin, creds, &out)
	if err != nil {
		return nil, err
	}
	if res.AccountDisabled {
		return &LoginResult{AccountDisabled: true, Message: res.Message}, nil
	}
	if out.Token == "" {
		return nil, errors.New("[Login] server response carried no token")
	}
	if err := s.c.Session().Establish(out.Token, out.User); err != nil {
		return nil, err
	}
	return &LoginResult{User: out.User, Message: res.Message}, nil
}

// Register creates an account. Input is validated client-side first so
// ordinary mistakes never cost a round trip.
func (s *AuthService) Register(ctx context.Context, input RegistrationInput) error {
	if err := ValidateRegistration(input); err != nil {
		return err
	}
	_, err := s.c.Do(ctx, http.MethodPost, PathRegister, input, nil)
	return err
}

// Logout tells the backend, best effort, then clears the local session.
// The local clear happens regardless of what the server said.
func (s *AuthService) Logout(ctx context.Context) {
	_, _ = s.c.Do(ctx, http.MethodPost, PathLogout, nil, nil)
	s.c.Session().Logout()
}
