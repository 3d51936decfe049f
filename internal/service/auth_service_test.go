package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallwares/backoffice/internal/config"
	"github.com/smallwares/backoffice/internal/domain"
	"github.com/smallwares/backoffice/internal/jwt"
	"github.com/smallwares/backoffice/internal/password"
	"github.com/smallwares/backoffice/internal/repository"
	"github.com/smallwares/backoffice/internal/service"
)

func newTestAuthService(t *testing.T) (*service.AuthService, *memoryUserRepo, *recordingMailer, *jwt.Generator) {
	t.Helper()

	users := newMemoryUserRepo()
	mailer := &recordingMailer{}
	generator := jwt.NewGenerator([]byte("test-secret-test-secret-test-secret!"), 24*time.Hour)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	cfg := config.Config{
		ResetTokenTTL:   time.Hour,
		FrontendBaseURL: "http://localhost:5174",
	}

	return service.NewAuthService(users, mailer, generator, node, cfg, zap.NewNop()), users, mailer, generator
}

func register(t *testing.T, auth *service.AuthService, email, pass string) service.AuthResult {
	t.Helper()
	result, err := auth.Register(context.Background(), service.RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  pass,
	})
	require.NoError(t, err)
	return result
}

func TestRegisterIssuesVerifiableToken(t *testing.T) {
	auth, users, _, generator := newTestAuthService(t)

	result := register(t, auth, "a@x.com", "secret1")
	require.Equal(t, "a@x.com", result.User.Email)
	require.Equal(t, "Ada", result.User.FirstName)
	require.NotEmpty(t, result.Token)

	claims, err := generator.Validate(result.Token)
	require.NoError(t, err)
	require.Equal(t, result.User.ID, claims.UserID)
	require.Equal(t, "a@x.com", claims.Email)

	stored, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NotEqual(t, "secret1", stored.PasswordHash)
	require.True(t, password.Verify("secret1", stored.PasswordHash))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	auth, _, _, _ := newTestAuthService(t)
	register(t, auth, "a@x.com", "secret1")

	_, err := auth.Register(context.Background(), service.RegisterInput{
		FirstName: "Different",
		LastName:  "Person",
		Email:     "a@x.com",
		Password:  "unrelated-password",
	})
	var svcErr *service.Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, service.KindDuplicateEmail, svcErr.Kind)
}

func TestRegisterNormalizesEmailForUniqueness(t *testing.T) {
	auth, _, _, _ := newTestAuthService(t)
	register(t, auth, "a@x.com", "secret1")

	_, err := auth.Register(context.Background(), service.RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "  A@X.COM ",
		Password:  "secret1",
	})
	var svcErr *service.Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, service.KindDuplicateEmail, svcErr.Kind)
}

func TestRegisterValidation(t *testing.T) {
	auth, _, _, _ := newTestAuthService(t)

	_, err := auth.Register(context.Background(), service.RegisterInput{
		FirstName: " ",
		LastName:  "",
		Email:     "not-an-email",
		Password:  "short",
	})
	var svcErr *service.Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, service.KindValidation, svcErr.Kind)
	require.Contains(t, svcErr.Fields, "firstName")
	require.Contains(t, svcErr.Fields, "lastName")
	require.Contains(t, svcErr.Fields, "email")
	require.Contains(t, svcErr.Fields, "password")
}

func TestLoginEnumerationResistance(t *testing.T) {
	auth, _, _, _ := newTestAuthService(t)
	register(t, auth, "a@x.com", "secret1")

	_, wrongPassword := auth.Login(context.Background(), "a@x.com", "wrong-password")
	_, unknownUser := auth.Login(context.Background(), "nobody@x.com", "secret1")

	require.Error(t, wrongPassword)
	require.Equal(t, wrongPassword, unknownUser)
	require.ErrorIs(t, wrongPassword, service.ErrInvalidCredentials)
}

func TestProfile(t *testing.T) {
	auth, _, _, _ := newTestAuthService(t)
	result := register(t, auth, "a@x.com", "secret1")

	view, err := auth.Profile(context.Background(), result.User.ID)
	require.NoError(t, err)
	require.Equal(t, result.User, view)

	_, err = auth.Profile(context.Background(), 424242)
	require.ErrorIs(t, err, service.ErrUnauthenticated)
}

func TestForgotPasswordPersistsTokenAndSendsLink(t *testing.T) {
	auth, users, mailer, _ := newTestAuthService(t)
	register(t, auth, "a@x.com", "secret1")

	before := time.Now()
	require.NoError(t, auth.ForgotPassword(context.Background(), "a@x.com"))

	stored, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, stored.ResetToken)
	require.Len(t, stored.ResetToken, 64) // 32 random bytes, hex encoded
	require.NotNil(t, stored.ResetTokenExpiry)
	require.WithinDuration(t, before.Add(time.Hour), *stored.ResetTokenExpiry, 5*time.Second)

	require.Len(t, mailer.sent, 1)
	require.Equal(t, "a@x.com", mailer.sent[0].to)
	require.Contains(t, mailer.sent[0].body, "http://localhost:5174/reset-password/"+stored.ResetToken)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	auth, _, mailer, _ := newTestAuthService(t)

	err := auth.ForgotPassword(context.Background(), "nobody@x.com")
	var svcErr *service.Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, service.KindNotFound, svcErr.Kind)
	require.Empty(t, mailer.sent)
}

func TestForgotPasswordMailerFailureKeepsToken(t *testing.T) {
	auth, users, mailer, _ := newTestAuthService(t)
	register(t, auth, "a@x.com", "secret1")
	mailer.failWith = fmt.Errorf("smtp unreachable")

	err := auth.ForgotPassword(context.Background(), "a@x.com")
	var svcErr *service.Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, service.KindInternal, svcErr.Kind)

	stored, getErr := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, getErr)
	require.NotEmpty(t, stored.ResetToken)
	require.NotNil(t, stored.ResetTokenExpiry)
}

func TestResetPasswordConsumesToken(t *testing.T) {
	auth, users, _, _ := newTestAuthService(t)
	register(t, auth, "a@x.com", "secret1")
	require.NoError(t, auth.ForgotPassword(context.Background(), "a@x.com"))

	stored, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	token := stored.ResetToken

	// Token on the edge of its window, but still inside it.
	users.setExpiry(t, "a@x.com", time.Now().Add(time.Minute))
	require.NoError(t, auth.ResetPassword(context.Background(), token, "secret2"))

	stored, err = users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Empty(t, stored.ResetToken)
	require.Nil(t, stored.ResetTokenExpiry)
	require.False(t, password.Verify("secret1", stored.PasswordHash))
	require.True(t, password.Verify("secret2", stored.PasswordHash))

	// A consumed token can never be used again.
	err = auth.ResetPassword(context.Background(), token, "secret3")
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	auth, users, _, _ := newTestAuthService(t)
	register(t, auth, "a@x.com", "secret1")
	require.NoError(t, auth.ForgotPassword(context.Background(), "a@x.com"))

	stored, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	token := stored.ResetToken

	// Token that became valid 61 minutes ago has outlived its window.
	users.setExpiry(t, "a@x.com", time.Now().Add(-time.Minute))

	err = auth.ResetPassword(context.Background(), token, "secret2")
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)

	// The failed attempt leaves the pending state untouched.
	stored, err = users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, token, stored.ResetToken)
	require.True(t, password.Verify("secret1", stored.PasswordHash))
}

func TestResetPasswordUnknownToken(t *testing.T) {
	auth, _, _, _ := newTestAuthService(t)

	err := auth.ResetPassword(context.Background(), strings.Repeat("ab", 32), "secret2")
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)
}

func TestResetPasswordValidatesNewPassword(t *testing.T) {
	auth, users, _, _ := newTestAuthService(t)
	register(t, auth, "a@x.com", "secret1")
	require.NoError(t, auth.ForgotPassword(context.Background(), "a@x.com"))

	stored, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)

	err = auth.ResetPassword(context.Background(), stored.ResetToken, "short")
	var svcErr *service.Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, service.KindValidation, svcErr.Kind)
	require.Contains(t, svcErr.Fields, "password")
}

func TestRepeatedForgotPasswordOverwritesToken(t *testing.T) {
	auth, users, _, _ := newTestAuthService(t)
	register(t, auth, "a@x.com", "secret1")

	require.NoError(t, auth.ForgotPassword(context.Background(), "a@x.com"))
	first, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)

	require.NoError(t, auth.ForgotPassword(context.Background(), "a@x.com"))
	second, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)

	require.NotEqual(t, first.ResetToken, second.ResetToken)

	// The superseded token is gone for good.
	err = auth.ResetPassword(context.Background(), first.ResetToken, "secret2")
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)
	require.NoError(t, auth.ResetPassword(context.Background(), second.ResetToken, "secret2"))
}

func TestConcurrentForgotPasswordKeepsPairConsistent(t *testing.T) {
	auth, users, _, _ := newTestAuthService(t)
	register(t, auth, "a@x.com", "secret1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, auth.ForgotPassword(context.Background(), "a@x.com"))
		}()
	}
	wg.Wait()

	stored, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored.ResetTokenExpiry)

	// The persisted pair must match a single SetResetToken call exactly,
	// never a mix of two.
	require.True(t, users.wasWrittenAsPair(stored.ResetToken, *stored.ResetTokenExpiry))
}

func TestCredentialLifecycleEndToEnd(t *testing.T) {
	auth, users, mailer, _ := newTestAuthService(t)
	ctx := context.Background()

	register(t, auth, "a@x.com", "secret1")

	login, err := auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, login.Token)

	require.NoError(t, auth.ForgotPassword(ctx, "a@x.com"))
	require.Len(t, mailer.sent, 1)

	stored, err := users.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NoError(t, auth.ResetPassword(ctx, stored.ResetToken, "secret2"))

	_, err = auth.Login(ctx, "a@x.com", "secret1")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	relogin, err := auth.Login(ctx, "a@x.com", "secret2")
	require.NoError(t, err)
	require.Equal(t, login.User.ID, relogin.User.ID)
}

// memoryUserRepo is an in-memory UserRepository. Writes take the mutex for
// the whole call so each method is atomic, mirroring the per-statement
// atomicity of the Postgres implementation.
type memoryUserRepo struct {
	mu      sync.Mutex
	byID    map[int64]domain.User
	history []resetPair
}

type resetPair struct {
	token  string
	expiry time.Time
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{byID: make(map[int64]domain.User)}
}

func (m *memoryUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == user.Email {
			return domain.User{}, repository.ErrDuplicateEmail
		}
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.byID[user.ID] = user
	return user, nil
}

func (m *memoryUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

func (m *memoryUserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) GetByResetToken(ctx context.Context, token string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byID {
		if user.ResetToken != "" && user.ResetToken == token {
			return user, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

func (m *memoryUserRepo) SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.ResetToken = token
	user.ResetTokenExpiry = &expiry
	user.UpdatedAt = time.Now()
	m.byID[userID] = user
	m.history = append(m.history, resetPair{token: token, expiry: expiry})
	return nil
}

func (m *memoryUserRepo) ResetPassword(ctx context.Context, userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.ResetToken = ""
	user.ResetTokenExpiry = nil
	user.UpdatedAt = time.Now()
	m.byID[userID] = user
	return nil
}

func (m *memoryUserRepo) setExpiry(t *testing.T, email string, expiry time.Time) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, user := range m.byID {
		if user.Email == email {
			user.ResetTokenExpiry = &expiry
			m.byID[id] = user
			return
		}
	}
	t.Fatalf("no user with email %s", email)
}

func (m *memoryUserRepo) wasWrittenAsPair(token string, expiry time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pair := range m.history {
		if pair.token == token && pair.expiry.Equal(expiry) {
			return true
		}
	}
	return false
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type recordingMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failWith error
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}
