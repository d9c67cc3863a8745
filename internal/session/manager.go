package session

import (
	"context"
	"log"
	"sync"

	"github.com/aryak/blogfront/internal/models"
	"github.com/aryak/blogfront/internal/store"
)

// Backend is the slice of the API client the session core depends on.
type Backend interface {
	Login(ctx context.Context, creds models.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, creds models.RegisterRequest) (*models.AuthResponse, error)
	Profile(ctx context.Context, token string) (*models.User, error)
}

// State is a point-in-time snapshot of the session. Authenticated is
// true iff User is non-nil.
type State struct {
	User          *models.User `json:"user"`
	Authenticated bool         `json:"is_authenticated"`
	Loading       bool         `json:"loading"`
}

// Manager is the single source of truth for who is logged in. One
// instance is built at startup and injected into every consumer.
//
// Each auth call takes a generation number; a response whose
// generation is stale by the time it resolves is discarded, so two
// racing logins cannot interleave and a logout supersedes any login
// still in flight.
type Manager struct {
	backend Backend
	store   store.Store

	mu            sync.Mutex
	user          *models.User
	authenticated bool
	token         string
	gen           uint64
	inflight      int
	initializing  bool
}

func NewManager(backend Backend, st store.Store) *Manager {
	return &Manager{backend: backend, store: st, initializing: true}
}

// Initialize restores a persisted session. It never returns an error:
// any failure (missing token, network error, rejected token) lands in
// the anonymous state, and a rejected token is purged from the store.
func (m *Manager) Initialize(ctx context.Context) {
	defer func() {
		m.mu.Lock()
		m.initializing = false
		m.mu.Unlock()
	}()

	sess, err := m.store.Get(ctx)
	if err != nil {
		// An unreadable slot is as good as a rejected token: purge it
		// so it cannot poison the next startup.
		log.Printf("session restore: %v", err)
		if derr := m.store.Delete(ctx); derr != nil {
			log.Printf("session restore: purge slot: %v", derr)
		}
		return
	}
	if sess == nil {
		return
	}

	user, err := m.backend.Profile(ctx, sess.Token)
	if err != nil {
		log.Printf("session restore: token rejected: %v", err)
		if derr := m.store.Delete(ctx); derr != nil {
			log.Printf("session restore: purge token: %v", derr)
		}
		return
	}

	m.mu.Lock()
	m.user = user
	m.authenticated = true
	m.token = sess.Token
	m.mu.Unlock()
}

// Login authenticates with the backend and, on success, persists the
// token and moves the session to authenticated. On failure the state
// is untouched and the error goes back to the caller for display.
func (m *Manager) Login(ctx context.Context, creds models.LoginRequest) error {
	gen := m.begin()
	resp, err := m.backend.Login(ctx, creds)
	if err != nil {
		m.abort()
		return err
	}
	m.commit(ctx, gen, resp)
	return nil
}

// Register has the same contract as Login against the registration
// endpoint. Input validation (password length, confirmation) is the
// calling view's concern.
func (m *Manager) Register(ctx context.Context, creds models.RegisterRequest) error {
	gen := m.begin()
	resp, err := m.backend.Register(ctx, creds)
	if err != nil {
		m.abort()
		return err
	}
	m.commit(ctx, gen, resp)
	return nil
}

// Logout drops the session immediately. No network call; calling it
// while already anonymous is a no-op. It bumps the generation so any
// auth call still in flight resolves as stale.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.gen++
	m.user = nil
	m.authenticated = false
	m.token = ""
	m.mu.Unlock()

	if err := m.store.Delete(ctx); err != nil {
		log.Printf("logout: delete session: %v", err)
	}
}

func (m *Manager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.inflight++
	return m.gen
}

func (m *Manager) abort() {
	m.mu.Lock()
	m.inflight--
	m.mu.Unlock()
}

func (m *Manager) commit(ctx context.Context, gen uint64, resp *models.AuthResponse) {
	m.mu.Lock()
	m.inflight--
	if gen != m.gen {
		// Superseded by a later login, register, or logout.
		m.mu.Unlock()
		return
	}
	user := resp.User
	m.user = &user
	m.authenticated = true
	m.token = resp.AccessToken
	m.mu.Unlock()

	if err := m.store.Set(ctx, &store.Session{Token: resp.AccessToken, User: &user}); err != nil {
		log.Printf("persist session: %v", err)
	}
}

// User returns a copy of the current user, or nil when anonymous.
func (m *Manager) User() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticated
}

// Loading reports whether startup restore or an auth call is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initializing || m.inflight > 0
}

// Token returns the current bearer token, or "" when anonymous.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Snapshot returns the full session state under one lock acquisition.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := State{
		Authenticated: m.authenticated,
		Loading:       m.initializing || m.inflight > 0,
	}
	if m.user != nil {
		u := *m.user
		st.User = &u
	}
	return st
}
