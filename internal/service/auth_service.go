package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	mailadapter "github.com/smallwares/backoffice/internal/adapter/mail"
	"github.com/smallwares/backoffice/internal/config"
	"github.com/smallwares/backoffice/internal/domain"
	"github.com/smallwares/backoffice/internal/jwt"
	pw "github.com/smallwares/backoffice/internal/password"
	"github.com/smallwares/backoffice/internal/repository"
)

const (
	minPasswordLength = 6
	resetTokenBytes   = 32
)

// AuthService is the single authority over credential lifecycle transitions:
// registration, login, profile lookup, and the password reset flow.
type AuthService struct {
	users     repository.UserRepository
	mailer    mailadapter.Sender
	jwt       *jwt.Generator
	snowflake *snowflake.Node
	cfg       config.Config
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, mailer mailadapter.Sender, generator *jwt.Generator, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		mailer:    mailer,
		jwt:       generator,
		snowflake: node,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("github.com/smallwares/backoffice/internal/service"),
	}
}

// RegisterInput carries the fields accepted at registration. Anything else a
// client sends is dropped at the handler boundary.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Register creates a new account and issues a session token for it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	normalized := normalizeEmail(input.Email)

	fields := map[string]string{}
	if strings.TrimSpace(input.FirstName) == "" {
		fields["firstName"] = "First name is required."
	}
	if strings.TrimSpace(input.LastName) == "" {
		fields["lastName"] = "Last name is required."
	}
	if msg := validateEmail(normalized); msg != "" {
		fields["email"] = msg
	}
	if msg := validatePassword(input.Password); msg != "" {
		fields["password"] = msg
	}
	if len(fields) > 0 {
		return AuthResult{}, errValidation(fields)
	}

	if _, err := s.users.GetByEmail(ctx, normalized); err == nil {
		return AuthResult{}, errDuplicateEmail()
	} else if !errors.Is(err, repository.ErrNotFound) {
		span.RecordError(err)
		return AuthResult{}, s.internal("check existing user", err)
	}

	hashed, err := pw.Hash(input.Password)
	if err != nil {
		span.RecordError(err)
		return AuthResult{}, s.internal("hash password", err)
	}

	created, err := s.users.Create(ctx, domain.User{
		ID:           s.snowflake.Generate().Int64(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        normalized,
		PasswordHash: hashed,
	})
	if err != nil {
		// A concurrent registration can win the unique index race after the
		// duplicate check above.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return AuthResult{}, errDuplicateEmail()
		}
		span.RecordError(err)
		return AuthResult{}, s.internal("create user", err)
	}

	token, err := s.jwt.Generate(created)
	if err != nil {
		span.RecordError(err)
		return AuthResult{}, s.internal("issue session token", err)
	}

	s.audit("auth.register.success", "user_id", created.ID)
	return AuthResult{User: newUserView(created), Token: token}, nil
}

// Login authenticates by email and password. Unknown email and wrong
// password yield the identical error value.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			span.RecordError(err)
			return AuthResult{}, s.internal("load user", err)
		}
		return AuthResult{}, ErrInvalidCredentials
	}

	if !pw.Verify(password, user.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		span.RecordError(err)
		return AuthResult{}, s.internal("issue session token", err)
	}

	s.audit("auth.login.success", "user_id", user.ID)
	return AuthResult{User: newUserView(user), Token: token}, nil
}

// Profile returns the public projection for an authenticated caller.
func (s *AuthService) Profile(ctx context.Context, userID int64) (UserView, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Profile")
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The token verified but its subject is gone.
			return UserView{}, ErrUnauthenticated
		}
		span.RecordError(err)
		return UserView{}, s.internal("load user", err)
	}
	return newUserView(user), nil
}

// ForgotPassword issues a reset token with a bounded validity window and
// hands the reset link to the notification sink. A repeated call overwrites
// any pending token.
//
// Responding not_found for unknown emails leaks account existence; kept to
// match the historical API surface rather than silently hardened.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	ctx, span := s.startSpan(ctx, "AuthService.ForgotPassword")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound("User not found.")
		}
		span.RecordError(err)
		return s.internal("load user", err)
	}

	token, err := newResetToken()
	if err != nil {
		span.RecordError(err)
		return s.internal("generate reset token", err)
	}
	expiry := time.Now().Add(s.cfg.ResetTokenTTL)

	if err := s.users.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		span.RecordError(err)
		return s.internal("persist reset token", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(s.cfg.FrontendBaseURL, "/"), token)
	body := fmt.Sprintf(`<p>You requested a password reset</p>
<p>Click this <a href="%s">link</a> to reset your password.</p>
<p>This link will expire in 1 hour.</p>`, resetURL)

	// The token is already persisted at this point; a delivery failure does
	// not roll it back. Retrying delivery is the sink's concern.
	if err := s.mailer.Send(ctx, user.Email, "Password Reset", body); err != nil {
		span.RecordError(err)
		return s.internal("send reset mail", err)
	}

	s.audit("auth.password_forgot.sent", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset token. Unknown and expired tokens collapse
// to the same error so callers cannot probe token validity. The new hash is
// stored and the token pair cleared in one statement, so a token can never
// be used twice.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	ctx, span := s.startSpan(ctx, "AuthService.ResetPassword")
	defer span.End()

	if strings.TrimSpace(token) == "" {
		return ErrInvalidOrExpiredToken
	}
	if msg := validatePassword(newPassword); msg != "" {
		return errValidation(map[string]string{"password": msg})
	}

	user, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		span.RecordError(err)
		return s.internal("load user by reset token", err)
	}

	if user.ResetTokenExpiry == nil || time.Now().After(*user.ResetTokenExpiry) {
		return ErrInvalidOrExpiredToken
	}

	hashed, err := pw.Hash(newPassword)
	if err != nil {
		span.RecordError(err)
		return s.internal("hash password", err)
	}

	if err := s.users.ResetPassword(ctx, user.ID, hashed); err != nil {
		span.RecordError(err)
		return s.internal("store new password", err)
	}

	s.audit("auth.password_reset.success", "user_id", user.ID)
	return nil
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
	logger := s.log()
	fields := make([]zap.Field, 0, len(attrs)/2+1)
	fields = append(fields, zap.String("event", event))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

// internal logs the real cause and returns the opaque error clients see.
func (s *AuthService) internal(op string, err error) error {
	s.log().Error("auth service failure", zap.String("op", op), zap.Error(err))
	return errInternal()
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) string {
	if email == "" {
		return "Email is required."
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "Email must be a valid address."
	}
	return ""
}

func validatePassword(password string) string {
	if password == "" {
		return "Password is required."
	}
	if len(password) < minPasswordLength {
		return fmt.Sprintf("Password must be at least %d characters.", minPasswordLength)
	}
	return ""
}

// newResetToken returns 256 bits of entropy, hex-encoded so it is URL-safe.
func newResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}
