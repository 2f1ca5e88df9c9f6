package instructor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"attendance-control-plane/internal/audit"
	"attendance-control-plane/internal/instructor/domain"
	instructorrepo "attendance-control-plane/internal/instructor/repository"
	"attendance-control-plane/internal/security"
)

// Sentinel errors for instructor auth; the handler maps them to HTTP codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuthResult holds the outcome of a successful login.
type AuthResult struct {
	AccessToken  string
	ExpiresAt    time.Time
	InstructorID string
	Name         string
}

// AuthService implements password-based register and login for instructors.
type AuthService struct {
	repo    instructorrepo.Repository
	hasher  *security.Hasher
	tokens  *security.TokenProvider
	auditor audit.Recorder
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(repo instructorrepo.Repository, hasher *security.Hasher, tokens *security.TokenProvider, auditor audit.Recorder) *AuthService {
	return &AuthService{repo: repo, hasher: hasher, tokens: tokens, auditor: auditor}
}

// Register creates an instructor account with the given email and password.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*domain.Instructor, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRe.MatchString(email) {
		return nil, errors.New("invalid email address")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	i := &domain.Instructor{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, i); err != nil {
		return nil, err
	}
	s.auditor.LogEvent(ctx, audit.EventInstructorRegistered, i.ID, "", fmt.Sprintf(`{"email":%q}`, email))
	return i, nil
}

// Login verifies credentials and issues an access token. Both unknown email
// and wrong password return ErrInvalidCredentials; the failure is audited
// either way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	i, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if i == nil {
		s.auditor.LogEvent(ctx, audit.EventLoginFailure, email, "", `{"reason":"unknown email"}`)
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(i.PasswordHash, []byte(password)); err != nil {
		s.auditor.LogEvent(ctx, audit.EventLoginFailure, i.ID, "", `{"reason":"bad password"}`)
		return nil, ErrInvalidCredentials
	}
	token, _, expiresAt, err := s.tokens.IssueAccess(i.ID, i.Email)
	if err != nil {
		return nil, err
	}
	s.auditor.LogEvent(ctx, audit.EventLoginSuccess, i.ID, "", "")
	return &AuthResult{
		AccessToken:  token,
		ExpiresAt:    expiresAt,
		InstructorID: i.ID,
		Name:         i.Name,
	}, nil
}
