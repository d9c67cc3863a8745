package session_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aryak/blogfront/internal/models"
	"github.com/aryak/blogfront/internal/session"
	"github.com/aryak/blogfront/internal/store"
)

type memStore struct {
	mu   sync.Mutex
	sess *store.Session
}

func (m *memStore) Get(ctx context.Context) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess, nil
}

func (m *memStore) Set(ctx context.Context, s *store.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = s
	return nil
}

func (m *memStore) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}

type fakeBackend struct {
	login    func(ctx context.Context, creds models.LoginRequest) (*models.AuthResponse, error)
	register func(ctx context.Context, creds models.RegisterRequest) (*models.AuthResponse, error)
	profile  func(ctx context.Context, token string) (*models.User, error)
}

func (f *fakeBackend) Login(ctx context.Context, creds models.LoginRequest) (*models.AuthResponse, error) {
	return f.login(ctx, creds)
}

func (f *fakeBackend) Register(ctx context.Context, creds models.RegisterRequest) (*models.AuthResponse, error) {
	return f.register(ctx, creds)
}

func (f *fakeBackend) Profile(ctx context.Context, token string) (*models.User, error) {
	return f.profile(ctx, token)
}

func authResponse() *models.AuthResponse {
	return &models.AuthResponse{
		AccessToken: "tok123",
		User:        models.User{ID: 1, Username: "a", Email: "a@b.com"},
	}
}

func TestLoginTransitionsAndPersistsToken(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	backend := &fakeBackend{
		login: func(ctx context.Context, creds models.LoginRequest) (*models.AuthResponse, error) {
			if creds.Email != "a@b.com" || creds.Password != "secret1" {
				t.Errorf("credentials = %+v", creds)
			}
			return authResponse(), nil
		},
	}
	m := session.NewManager(backend, st)
	m.Initialize(ctx)

	if err := m.Login(ctx, models.LoginRequest{Email: "a@b.com", Password: "secret1"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !m.IsAuthenticated() {
		t.Error("expected authenticated state")
	}
	if m.Loading() {
		t.Error("loading must be false after login resolves")
	}
	if user := m.User(); user == nil || user.ID != 1 {
		t.Errorf("user = %+v", user)
	}
	sess, _ := st.Get(ctx)
	if sess == nil || sess.Token != "tok123" {
		t.Errorf("persisted session = %+v, want token tok123", sess)
	}
}

func TestLoginFailureStaysAnonymousAndRethrows(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	backend := &fakeBackend{
		login: func(ctx context.Context, creds models.LoginRequest) (*models.AuthResponse, error) {
			return nil, errors.New("Invalid email or password")
		},
	}
	m := session.NewManager(backend, st)
	m.Initialize(ctx)

	err := m.Login(ctx, models.LoginRequest{Email: "a@b.com", Password: "wrong"})
	if err == nil || err.Error() != "Invalid email or password" {
		t.Fatalf("err = %v, want backend message passed through", err)
	}
	if m.IsAuthenticated() || m.User() != nil {
		t.Error("state must stay anonymous on failure")
	}
	if m.Loading() {
		t.Error("loading must be false after the failed call")
	}
	if sess, _ := st.Get(ctx); sess != nil {
		t.Errorf("no token must be persisted, got %+v", sess)
	}
}

func TestRegisterTransitionsLikeLogin(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	backend := &fakeBackend{
		register: func(ctx context.Context, creds models.RegisterRequest) (*models.AuthResponse, error) {
			return authResponse(), nil
		},
	}
	m := session.NewManager(backend, st)
	m.Initialize(ctx)

	if err := m.Register(ctx, models.RegisterRequest{Username: "a", Email: "a@b.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !m.IsAuthenticated() || m.Token() != "tok123" {
		t.Errorf("state = authenticated %v, token %q", m.IsAuthenticated(), m.Token())
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	backend := &fakeBackend{
		login: func(ctx context.Context, creds models.LoginRequest) (*models.AuthResponse, error) {
			return authResponse(), nil
		},
	}
	m := session.NewManager(backend, st)
	m.Initialize(ctx)
	if err := m.Login(ctx, models.LoginRequest{Email: "a@b.com", Password: "secret1"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	m.Logout(ctx)
	m.Logout(ctx)

	if m.IsAuthenticated() || m.User() != nil || m.Token() != "" {
		t.Error("expected anonymous state after repeated logout")
	}
	if sess, _ := st.Get(ctx); sess != nil {
		t.Errorf("session slot = %+v, want empty", sess)
	}
}

func TestInitializeRestoresValidToken(t *testing.T) {
	ctx := context.Background()
	st := &memStore{sess: &store.Session{Token: "tok123"}}
	backend := &fakeBackend{
		profile: func(ctx context.Context, token string) (*models.User, error) {
			if token != "tok123" {
				t.Errorf("token = %q", token)
			}
			return &models.User{ID: 1, Username: "a", Email: "a@b.com"}, nil
		},
	}
	m := session.NewManager(backend, st)
	if !m.Loading() {
		t.Error("loading must be true before Initialize completes")
	}
	m.Initialize(ctx)

	if !m.IsAuthenticated() {
		t.Error("expected authenticated state from a persisted token")
	}
	if m.Loading() {
		t.Error("loading must be false after Initialize")
	}
	if m.Token() != "tok123" {
		t.Errorf("token = %q", m.Token())
	}
}

func TestInitializeRejectedTokenIsPurged(t *testing.T) {
	ctx := context.Background()
	st := &memStore{sess: &store.Session{Token: "stale"}}
	backend := &fakeBackend{
		profile: func(ctx context.Context, token string) (*models.User, error) {
			return nil, errors.New("token expired")
		},
	}
	m := session.NewManager(backend, st)
	m.Initialize(ctx)

	if m.IsAuthenticated() || m.User() != nil {
		t.Error("expected anonymous state after rejected token")
	}
	if sess, _ := st.Get(ctx); sess != nil {
		t.Errorf("rejected token must be purged, got %+v", sess)
	}
}

func TestInitializeCorruptSlotIsPurged(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	st, err := store.NewFileStore(path)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := session.NewManager(&fakeBackend{}, st)
	m.Initialize(ctx)

	if m.IsAuthenticated() || m.User() != nil {
		t.Error("expected anonymous state from a corrupt slot")
	}
	if m.Loading() {
		t.Error("loading must be false after Initialize")
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("corrupt slot must be removed from storage, stat err = %v", err)
	}
}

func TestInitializeWithoutTokenIsAnonymous(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(&fakeBackend{}, &memStore{})
	m.Initialize(ctx)

	if m.IsAuthenticated() || m.Loading() {
		t.Error("expected settled anonymous state")
	}
}

func TestLoginResolvingAfterLogoutIsDiscarded(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	started := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{
		login: func(ctx context.Context, creds models.LoginRequest) (*models.AuthResponse, error) {
			close(started)
			<-release
			return authResponse(), nil
		},
	}
	m := session.NewManager(backend, st)
	m.Initialize(ctx)

	done := make(chan error, 1)
	go func() {
		done <- m.Login(ctx, models.LoginRequest{Email: "a@b.com", Password: "secret1"})
	}()

	<-started
	if !m.Loading() {
		t.Error("loading must be true while login is in flight")
	}
	m.Logout(ctx)
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("login: %v", err)
	}

	if m.IsAuthenticated() || m.User() != nil {
		t.Error("a login superseded by logout must not re-authenticate")
	}
	if sess, _ := st.Get(ctx); sess != nil {
		t.Errorf("a superseded login must not persist a token, got %+v", sess)
	}
}

func TestLastOfTwoRacingLoginsWins(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	firstStarted := make(chan struct{})
	firstRelease := make(chan struct{})
	backend := &fakeBackend{
		login: func(ctx context.Context, creds models.LoginRequest) (*models.AuthResponse, error) {
			if creds.Email == "slow@b.com" {
				close(firstStarted)
				<-firstRelease
				return &models.AuthResponse{AccessToken: "slow-tok", User: models.User{ID: 9, Username: "slow", Email: creds.Email}}, nil
			}
			return authResponse(), nil
		},
	}
	m := session.NewManager(backend, st)
	m.Initialize(ctx)

	done := make(chan error, 1)
	go func() {
		done <- m.Login(ctx, models.LoginRequest{Email: "slow@b.com", Password: "x"})
	}()
	<-firstStarted

	// Second login starts after the first and finishes first.
	if err := m.Login(ctx, models.LoginRequest{Email: "a@b.com", Password: "secret1"}); err != nil {
		t.Fatalf("second login: %v", err)
	}
	close(firstRelease)
	if err := <-done; err != nil {
		t.Fatalf("first login: %v", err)
	}

	if user := m.User(); user == nil || user.ID != 1 {
		t.Errorf("user = %+v, want the later call's user to stick", user)
	}
	sess, _ := st.Get(ctx)
	if sess == nil || sess.Token != "tok123" {
		t.Errorf("persisted token = %+v, want the later call's token", sess)
	}
}
