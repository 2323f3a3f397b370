// Package auth keeps the signed-in user and its token across restarts.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"tasklist/logging"
	"tasklist/model"
	"tasklist/store"
)

const (
	UserKey  = "auth:user"
	TokenKey = "auth_token"
)

var ErrCredentialsRequired = errors.New("preencha usuário e senha")

// Authenticator exchanges credentials for a user and a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (model.User, string, error)
}

// SessionHolder is implemented by authenticators that must be told about a
// restored or cleared session, such as the REST client.
type SessionHolder interface {
	SetSession(userID, token string)
}

type Session struct {
	User  model.User
	Token string
}

// Manager owns the session. It is safe for concurrent use.
type Manager struct {
	kv     store.KV
	authn  Authenticator
	logger *log.Logger

	mu       sync.RWMutex
	session  *Session
	hydrated bool
}

func NewManager(kv store.KV, authn Authenticator, logger *log.Logger) *Manager {
	if authn == nil {
		authn = NewMock(0)
	}
	return &Manager{kv: kv, authn: authn, logger: logging.OrDiscard(logger)}
}

// Hydrate reads the persisted session. A missing or unreadable session
// leaves the manager signed out. Later calls return the current session.
func (m *Manager) Hydrate() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hydrated {
		return m.copySessionLocked(), m.session != nil
	}
	m.hydrated = true

	session, err := m.read()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("discarding saved session", "err", err)
		}
		m.setHolder("", "")
		return nil, false
	}
	m.session = session
	m.setHolder(session.User.ID, session.Token)
	m.logger.Debug("session restored", "user", session.User.Username)
	return m.copySessionLocked(), true
}

// Login validates the credentials, authenticates and persists the session.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return Session{}, ErrCredentialsRequired
	}
	user, token, err := m.authn.Authenticate(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	if user.LoggedAt.IsZero() {
		user.LoggedAt = time.Now().UTC()
	}
	session := Session{User: user, Token: token}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &session
	m.hydrated = true
	m.setHolder(user.ID, token)
	if err := m.write(session); err != nil {
		m.logger.Warn("save session failed", "err", err)
	}
	m.logger.Info("signed in", "user", user.Username)
	return session, nil
}

// Logout forgets the session and its persisted copy.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.logger.Info("signed out", "user", m.session.User.Username)
	}
	m.session = nil
	m.setHolder("", "")
	for _, key := range []string{UserKey, TokenKey} {
		if err := m.kv.Delete(key); err != nil {
			m.logger.Warn("erase session failed", "key", key, "err", err)
		}
	}
}

func (m *Manager) Session() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.copySessionLocked(), true
}

// User returns the signed-in user or nil.
func (m *Manager) User() *model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	u := m.session.User
	return &u
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil
}

func (m *Manager) Hydrated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hydrated
}

func (m *Manager) copySessionLocked() *Session {
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

func (m *Manager) setHolder(userID, token string) {
	if h, ok := m.authn.(SessionHolder); ok {
		h.SetSession(userID, token)
	}
}

func (m *Manager) read() (*Session, error) {
	data, err := m.kv.Get(UserKey)
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if strings.TrimSpace(user.Username) == "" {
		return nil, errors.New("saved user has no username")
	}
	token, err := m.kv.Get(TokenKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return &Session{User: user, Token: string(token)}, nil
}

func (m *Manager) write(s Session) error {
	data, err := json.Marshal(s.User)
	if err != nil {
		return err
	}
	if err := m.kv.Set(UserKey, data); err != nil {
		return err
	}
	if s.Token == "" {
		return m.kv.Delete(TokenKey)
	}
	return m.kv.Set(TokenKey, []byte(s.Token))
}

// Mock accepts any non-empty credential pair after a short delay.
type Mock struct {
	Delay time.Duration
	now   func() time.Time
}

// NewMock returns a Mock; a zero delay uses 400ms.
func NewMock(delay time.Duration) *Mock {
	if delay <= 0 {
		delay = 400 * time.Millisecond
	}
	return &Mock{Delay: delay, now: func() time.Time { return time.Now().UTC() }}
}

func (m *Mock) Authenticate(ctx context.Context, username, password string) (model.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return model.User{}, "", ErrCredentialsRequired
	}
	timer := time.NewTimer(m.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return model.User{}, "", ctx.Err()
	case <-timer.C:
	}
	user := model.User{
		ID:       "1",
		Username: username,
		Name:     username,
		LoggedAt: m.now(),
	}
	return user, "", nil
}
