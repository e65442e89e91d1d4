package auth

import (
    "context"
    "crypto/subtle"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/vendorpay/vendorpay/internal/store"
)

// ErrNoSession is returned when a token does not match the active session.
var ErrNoSession = errors.New("no active session")

// Session is the single operator session.
type Session struct {
    Token    string    `json:"token"`
    Identity string    `json:"identity"`
    IssuedAt time.Time `json:"issuedAt"`
}

// Service keeps at most one session and mirrors it into the store's
// isAuthenticated flag.
type Service struct {
    mu      sync.RWMutex
    authn   Authenticator
    store   store.Store
    now     func() time.Time
    session *Session
}

func NewService(authn Authenticator, st store.Store, clock func() time.Time) *Service {
    if clock == nil {
        clock = time.Now
    }
    return &Service{authn: authn, store: st, now: clock}
}

// Load restores a session persisted by a previous process.
func (s *Service) Load(ctx context.Context) error {
    var sess Session
    found, err := store.LoadJSON(ctx, s.store, store.KeySessionToken, &sess)
    if err != nil {
        return err
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    if found && sess.Token != "" {
        s.session = &sess
    } else {
        s.session = nil
    }
    return nil
}

// Login verifies the credentials and replaces any existing session.
func (s *Service) Login(ctx context.Context, identity, secret string) (Session, error) {
    if err := s.authn.Verify(ctx, identity, secret); err != nil {
        return Session{}, err
    }
    sess := Session{Token: uuid.NewString(), Identity: identity, IssuedAt: s.now().UTC()}

    s.mu.Lock()
    defer s.mu.Unlock()
    if err := store.SaveJSON(ctx, s.store, store.KeySessionToken, sess); err != nil {
        return Session{}, err
    }
    if err := s.store.Set(ctx, store.KeyAuthenticated, "true"); err != nil {
        return Session{}, fmt.Errorf("save %s: %w", store.KeyAuthenticated, err)
    }
    s.session = &sess
    return sess, nil
}

// Logout drops the session and clears the flag.
func (s *Service) Logout(ctx context.Context) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.session = nil
    if err := s.store.Delete(ctx, store.KeyAuthenticated); err != nil {
        return err
    }
    return s.store.Delete(ctx, store.KeySessionToken)
}

// IsAuthenticated reports whether a session is active.
func (s *Service) IsAuthenticated() bool {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return s.session != nil
}

// Validate returns the session owning token.
func (s *Service) Validate(token string) (Session, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if s.session == nil || token == "" {
        return Session{}, ErrNoSession
    }
    if subtle.ConstantTimeCompare([]byte(token), []byte(s.session.Token)) != 1 {
        return Session{}, ErrNoSession
    }
    return *s.session, nil
}
