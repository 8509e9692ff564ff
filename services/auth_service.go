package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	authServiceName   = "AuthService"
	minPasswordLength = 6
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

// AuthService is the sign-in capability the HTTP layer depends on
type AuthService interface {
	Register(ctx context.Context, displayName, email, password string) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	// CurrentUser returns nil when token names no live session
	CurrentUser(ctx context.Context, token string) *models.User
	Logout(ctx context.Context, token string) error
}

type account struct {
	user         models.User
	passwordHash []byte
}

// MemoryAuthService keeps accounts in process memory and sessions in a
// SessionCache. Accounts do not survive a restart.
type MemoryAuthService struct {
	mutex      sync.RWMutex
	accounts   map[string]account
	sessions   *SessionCache
	bcryptCost int
	logger     *logrus.Entry
}

// NewMemoryAuthService creates an auth service opening sessions in sessions
func NewMemoryAuthService(sessions *SessionCache) *MemoryAuthService {
	return NewMemoryAuthServiceWithCost(sessions, bcrypt.DefaultCost)
}

// NewMemoryAuthServiceWithCost is NewMemoryAuthService with an explicit bcrypt cost
func NewMemoryAuthServiceWithCost(sessions *SessionCache, cost int) *MemoryAuthService {
	return &MemoryAuthService{
		accounts:   make(map[string]account),
		sessions:   sessions,
		bcryptCost: cost,
		logger:     logrus.WithField("component", authServiceName),
	}
}

// Register creates an account and signs it in
func (s *MemoryAuthService) Register(ctx context.Context, displayName, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return Session{}, authError(shared.ErrorCategoryValidation, "INVALID_EMAIL", "Register", ErrInvalidEmail)
	}
	if len(password) < minPasswordLength {
		return Session{}, authError(shared.ErrorCategoryValidation, "WEAK_PASSWORD", "Register", ErrWeakPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return Session{}, shared.NewServiceError(shared.ErrorCategoryProcessing, "HASH_FAILED", "failed to hash password", authServiceName, "Register", false, err)
	}

	s.mutex.Lock()
	if _, exists := s.accounts[email]; exists {
		s.mutex.Unlock()
		return Session{}, authError(shared.ErrorCategoryValidation, "EMAIL_TAKEN", "Register", ErrEmailTaken)
	}
	user := models.User{
		ID:          uuid.New(),
		DisplayName: strings.TrimSpace(displayName),
		Email:       email,
	}
	s.accounts[email] = account{user: user, passwordHash: hash}
	s.mutex.Unlock()

	s.logger.WithField("user_id", user.ID).Info("Registered new account")
	return s.sessions.Open(user), nil
}

// SignIn verifies the credentials and opens a session
func (s *MemoryAuthService) SignIn(ctx context.Context, email, password string) (Session, error) {
	s.mutex.RLock()
	acct, exists := s.accounts[normalizeEmail(email)]
	s.mutex.RUnlock()

	if !exists {
		return Session{}, authError(shared.ErrorCategoryAuthentication, "INVALID_CREDENTIALS", "SignIn", ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return Session{}, authError(shared.ErrorCategoryAuthentication, "INVALID_CREDENTIALS", "SignIn", ErrInvalidCredentials)
	}

	return s.sessions.Open(acct.user), nil
}

// CurrentUser returns the user of a live session
func (s *MemoryAuthService) CurrentUser(ctx context.Context, token string) *models.User {
	if token == "" {
		return nil
	}
	session, found := s.sessions.Lookup(token)
	if !found {
		return nil
	}
	user := session.User
	return &user
}

// Logout ends the session named by token
func (s *MemoryAuthService) Logout(ctx context.Context, token string) error {
	if s.CurrentUser(ctx, token) == nil {
		err := authError(shared.ErrorCategoryAuthentication, "SESSION_NOT_FOUND", "Logout", ErrSessionNotFound)
		s.logger.WithError(err).Warn("Logout failed")
		return err
	}
	s.sessions.Revoke(token)
	s.logger.Debug("Session closed")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func authError(category shared.ErrorCategory, code, operation string, sentinel error) *shared.ServiceError {
	return shared.NewServiceError(category, code, sentinel.Error(), authServiceName, operation, false, sentinel)
}
