package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/docuvault-io/docuvault-api/internal/models"
	"github.com/docuvault-io/docuvault-api/internal/session"
	appErrors "github.com/docuvault-io/docuvault-api/pkg/errors"
)

type mockUserRepo struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
	created []*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byEmail: make(map[string]*models.User),
		byID:    make(map[string]*models.User),
	}
}

func (m *mockUserRepo) add(user *models.User) {
	m.byEmail[user.Email] = user
	m.byID[user.ID] = user
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.created = append(m.created, user)
	m.add(user)
	return nil
}

// fakeSessionStore tracks sessions in memory with RedisStore's semantics,
// including the single-winner guarantee of Consume.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]string
	next     int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]string)}
}

func (f *fakeSessionStore) Create(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := fmt.Sprintf("sess-%d", f.next)
	f.sessions[id] = userID
	return id, nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, sessionID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeSessionStore) Consume(ctx context.Context, sessionID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.sessions[sessionID]
	if !ok || owner != userID {
		return session.ErrSessionExpired
	}
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeSessionStore) AddConnection(ctx context.Context, userID, connID string) (bool, error) {
	return false, nil
}

func (f *fakeSessionStore) RemoveConnection(ctx context.Context, userID, connID string) (bool, error) {
	return false, nil
}

func (f *fakeSessionStore) OnlineUsers(ctx context.Context) ([]string, error) {
	return nil, nil
}

func testUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}
}

func newTestAuthService(t *testing.T, repo *mockUserRepo, store session.Store) *AuthService {
	t.Helper()
	return NewAuthService(repo, store, newTestTokenService(t), nil, nil)
}

func TestRegisterCreatesAccount(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(t, repo, newFakeSessionStore())

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "  Alice@Example.COM ",
		Password: "correct horse",
		Name:     "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email, "email is normalized")
	assert.Equal(t, models.RoleUser, user.Role)
	require.NotNil(t, user.Name)
	assert.Equal(t, "Alice", *user.Name)
	require.Len(t, repo.created, 1)
	assert.NotEqual(t, "correct horse", repo.created[0].PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(testUser(t, "alice@example.com", "pw12345678"))
	svc := newTestAuthService(t, repo, newFakeSessionStore())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "alice@example.com",
		Password: "pw12345678",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAccount))
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo(), newFakeSessionStore())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "alice@example.com",
		Password: "short",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestLoginIssuesSessionBoundTokens(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(testUser(t, "alice@example.com", "pw12345678"))
	store := newFakeSessionStore()
	svc := newTestAuthService(t, repo, store)

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "pw12345678",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)
	assert.Contains(t, store.sessions, res.Tokens.SessionID)
	assert.Equal(t, "alice@example.com", res.User.Email)
}

func TestLoginErrorsDoNotDistinguishAccounts(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(testUser(t, "alice@example.com", "pw12345678"))
	svc := newTestAuthService(t, repo, newFakeSessionStore())

	_, unknownErr := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "pw12345678",
	})
	_, wrongPwErr := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong password",
	})

	require.Error(t, unknownErr)
	require.Error(t, wrongPwErr)
	assert.Equal(t, unknownErr.Error(), wrongPwErr.Error())
	assert.True(t, appErrors.Is(unknownErr, appErrors.ErrInvalidCredentials))
	assert.True(t, appErrors.Is(wrongPwErr, appErrors.ErrInvalidCredentials))
}

func TestRefreshRotatesSession(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(testUser(t, "alice@example.com", "pw12345678"))
	store := newFakeSessionStore()
	svc := newTestAuthService(t, repo, store)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "pw12345678",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.SessionID, refreshed.Tokens.SessionID)
	assert.NotContains(t, store.sessions, login.Tokens.SessionID, "old session is revoked")
	assert.Contains(t, store.sessions, refreshed.Tokens.SessionID)
}

func TestRefreshReplayRejected(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(testUser(t, "alice@example.com", "pw12345678"))
	svc := newTestAuthService(t, repo, newFakeSessionStore())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "pw12345678",
	})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), login.Tokens.RefreshToken)
	require.NoError(t, err)

	// The same token a second time must fail: its session is gone.
	_, err = svc.Refresh(context.Background(), login.Tokens.RefreshToken)
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionExpired))
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(testUser(t, "alice@example.com", "pw12345678"))
	svc := newTestAuthService(t, repo, newFakeSessionStore())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "pw12345678",
	})
	require.NoError(t, err)

	// Both calls present the same refresh token at once. Consume is the
	// only arbiter: exactly one rotation may succeed, the other must see
	// the session as already spent.
	const racers = 2
	start := make(chan struct{})
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		losses++
		assert.True(t, appErrors.Is(err, appErrors.ErrSessionExpired))
	}
	assert.Equal(t, 1, wins, "exactly one of the concurrent refreshes may succeed")
	assert.Equal(t, racers-1, losses)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(testUser(t, "alice@example.com", "pw12345678"))
	svc := newTestAuthService(t, repo, newFakeSessionStore())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "pw12345678",
	})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), login.Tokens.AccessToken)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidToken))
}

func TestStatelessRefreshSkipsRevocation(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(testUser(t, "alice@example.com", "pw12345678"))
	svc := newTestAuthService(t, repo, session.NewStatelessStore())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "pw12345678",
	})
	require.NoError(t, err)

	// Without a session store, replay is accepted on signature alone.
	_, err = svc.Refresh(context.Background(), login.Tokens.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background(), login.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestLogoutRevokesSession(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(testUser(t, "alice@example.com", "pw12345678"))
	store := newFakeSessionStore()
	svc := newTestAuthService(t, repo, store)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "pw12345678",
	})
	require.NoError(t, err)

	svc.Logout(context.Background(), login.Tokens.RefreshToken)
	assert.NotContains(t, store.sessions, login.Tokens.SessionID)

	_, err = svc.Refresh(context.Background(), login.Tokens.RefreshToken)
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionExpired))
}

func TestLogoutSwallowsGarbage(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo(), newFakeSessionStore())

	// Must not panic or error regardless of input.
	svc.Logout(context.Background(), "")
	svc.Logout(context.Background(), "not-a-token")
}
