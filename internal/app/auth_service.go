package app

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"aichat-backend/internal/model"
	"aichat-backend/internal/pkg/jwtutil"
	"aichat-backend/internal/pkg/password"
	"aichat-backend/internal/repository"
)

var (
	ErrInvalidInput      = errors.New("username and password are required")
	ErrUsernameExists    = errors.New("username already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrUsernameTooLong   = errors.New("username must be at most 80 characters")
	ErrPasswordTooLong   = errors.New("password must be at most 72 bytes")
)

const (
	maxUsernameLength = 80
	// bcrypt ignores input beyond 72 bytes
	maxPasswordBytes = 72
)

type AuthService struct {
	userRepo      *repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
	log           logrus.FieldLogger
}

type RegisterInput struct {
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	Token string
	User  *model.User
}

func NewAuthService(userRepo *repository.UserRepository, jwtSecret string, jwtExpiration time.Duration, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		log:           log,
	}
}

// Register stores a new user. Username and password are kept exactly as sent;
// whitespace-only values count as missing.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if isBlank(input.Username) || isBlank(input.Password) {
		return nil, ErrInvalidInput
	}
	if utf8.RuneCountInString(input.Username) > maxUsernameLength {
		return nil, ErrUsernameTooLong
	}
	if len(input.Password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	existing, err := s.userRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameExists
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     input.Username,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameExists
		}
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	if isBlank(input.Username) || isBlank(input.Password) {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if user == nil || !password.Verify(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredential
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.userRepo.GetByID(ctx, id)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
