package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/olegbratus/gigflow-backend/internal/models"
	"github.com/olegbratus/gigflow-backend/internal/pkg/apperror"
	"github.com/olegbratus/gigflow-backend/internal/validation"
)

// authUserRepository описывает взаимодействие сервиса с хранилищем пользователей.
type authUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthService отвечает за регистрацию и вход.
type AuthService struct {
	users  authUserRepository
	tokens *TokenManager
}

func NewAuthService(users authUserRepository, tokens *TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// RegisterInput параметры регистрации.
type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	Role        string
	DisplayName string
}

// Register создаёт пользователя и сразу выпускает пару токенов.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, *TokenPair, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if len(in.Password) < 8 {
		return nil, nil, apperror.New(apperror.ErrCodeValidation, "пароль должен быть не менее 8 символов")
	}
	if _, ok := models.ValidRoles[in.Role]; !ok {
		return nil, nil, apperror.New(apperror.ErrCodeValidation, "некорректная роль пользователя")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось захэшировать пароль")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: string(hash),
		Role:         in.Role,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		CreatedAt:    time.Now(),
	}
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeConflict, "пользователь с таким email уже существует")
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login проверяет учётные данные и выпускает пару токенов.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil, apperror.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperror.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh выпускает новую пару по refresh токену.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}

	return s.tokens.IssuePair(user.ID, user.Role)
}
