// Package auth tracks the operator session. Authentication itself belongs to
// the verification API: it sets an opaque cookie on login, and the console
// only asks it whether that cookie is still good.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/veriscope/console/internal/backend"
	"github.com/veriscope/console/pkg/errors"
	"github.com/veriscope/console/pkg/httputil"
	"github.com/veriscope/console/pkg/logger"
)

// Status is where the session stands
type Status string

const (
	StatusUninitialized  Status = "uninitialized"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
	StatusAnonymous      Status = "anonymous"
)

const loginFailedMessage = "Login failed"

// User is the operator as the API describes them
type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// UnmarshalJSON accepts _id as well as id
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string `json:"id"`
		MongoID  string `json:"_id"`
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User{ID: raw.ID, Name: raw.Name, Email: raw.Email, Role: raw.Role}
	if u.ID == "" {
		u.ID = raw.MongoID
	}
	if u.Name == "" {
		u.Name = raw.Username
	}
	return nil
}

// Username is how the operator is named in logs and events
func (u *User) Username() string {
	if u == nil {
		return ""
	}
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	}
	return u.ID
}

// Session is a snapshot of the operator session. Only an authenticated
// session has a User; Error holds the last login failure.
type Session struct {
	Status Status `json:"status"`
	User   *User  `json:"user,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Authenticated reports whether workflow routes may be used
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// Credentials are what the login form submits
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user"`
	Message string `json:"message"`
}

// Manager owns the session state
type Manager struct {
	backend *backend.Client
	logger  *logger.Logger

	once    sync.Once
	mu      sync.RWMutex
	session Session
}

// NewManager creates a manager in the uninitialized state
func NewManager(b *backend.Client, log *logger.Logger) *Manager {
	return &Manager{
		backend: b,
		logger:  log.WithComponent("auth"),
		session: Session{Status: StatusUninitialized},
	}
}

// Session returns the current session
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

func (m *Manager) set(s Session) Session {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
	return s
}

// Initialize asks the API whether the session cookie is still valid. It runs
// once; later calls return the current session. Any failure leaves the
// session anonymous.
func (m *Manager) Initialize(ctx context.Context) Session {
	m.once.Do(func() {
		m.set(Session{Status: StatusAuthenticating})

		var resp authResponse
		if err := m.backend.GetJSON(ctx, "/verify", &resp); err != nil {
			m.logger.Info().Err(err).Msg("session verification failed")
			m.set(Session{Status: StatusAnonymous})
			return
		}
		if !resp.Success || resp.User == nil {
			m.set(Session{Status: StatusAnonymous})
			return
		}

		m.set(Session{Status: StatusAuthenticated, User: resp.User})
		m.logger.Info().Str("user", resp.User.Username()).Msg("session restored")
	})
	return m.Session()
}

// Login submits credentials. A failed login leaves the session anonymous
// with the API's message, or "Login failed" when there is none.
func (m *Manager) Login(ctx context.Context, creds Credentials) (Session, error) {
	if err := httputil.Validate(&creds); err != nil {
		return m.Session(), err
	}

	// a login settles the session; startup verification must not undo it
	m.once.Do(func() {})
	m.set(Session{Status: StatusAuthenticating})

	var resp authResponse
	if err := m.backend.DoJSON(ctx, http.MethodPost, "/login", creds, &resp); err != nil {
		msg, appErr := loginError(err)
		m.logger.Warn().Err(err).Str("email", creds.Email).Msg("login failed")
		return m.set(Session{Status: StatusAnonymous, Error: msg}), appErr
	}
	if !resp.Success || resp.User == nil {
		msg := resp.Message
		if msg == "" {
			msg = loginFailedMessage
		}
		m.logger.Warn().Str("email", creds.Email).Str("message", msg).Msg("login rejected")
		return m.set(Session{Status: StatusAnonymous, Error: msg}), errors.InvalidCredentials(msg)
	}

	m.logger.Info().Str("user", resp.User.Username()).Msg("logged in")
	return m.set(Session{Status: StatusAuthenticated, User: resp.User}), nil
}

func loginError(err error) (string, error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = loginFailedMessage
		}
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusBadRequest {
			return msg, errors.InvalidCredentials(msg)
		}
		return msg, errors.Upstream(msg, apiErr.StatusCode)
	}
	if backend.IsTimeout(err) {
		return loginFailedMessage, errors.Timeout(loginFailedMessage)
	}
	return loginFailedMessage, errors.Network(loginFailedMessage, err)
}

// Logout asks the API to clear its cookie. The session ends anonymous and
// the local cookie jar is emptied whether or not the call succeeds.
func (m *Manager) Logout(ctx context.Context) Session {
	if err := m.backend.DoJSON(ctx, http.MethodPost, "/logout", nil, nil); err != nil {
		m.logger.Warn().Err(err).Msg("logout call failed")
	}
	m.backend.ResetSession()
	m.once.Do(func() {})

	m.logger.Info().Msg("logged out")
	return m.set(Session{Status: StatusAnonymous})
}

// ClearError drops the last login failure message
func (m *Manager) ClearError() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Error = ""
	return m.session
}
