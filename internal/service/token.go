package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPair хранит пару access/refresh токенов.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

// TokenManager отвечает за выпуск и проверку JWT.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssuePair выпускает новую пару токенов для пользователя.
func (m *TokenManager) IssuePair(userID uuid.UUID, role string) (*TokenPair, error) {
	now := time.Now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(m.accessTTL).Unix(),
	})
	accessRaw, err := access.SignedString(m.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("token: не удалось подписать access токен: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"iat": now.Unix(),
		"exp": now.Add(m.refreshTTL).Unix(),
	})
	refreshRaw, err := refresh.SignedString(m.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("token: не удалось подписать refresh токен: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessRaw,
		RefreshToken: refreshRaw,
		ExpiresIn:    m.accessTTL,
	}, nil
}

// ParseAccess проверяет access токен и возвращает идентификатор и роль.
func (m *TokenManager) ParseAccess(raw string) (uuid.UUID, string, error) {
	claims, err := m.parse(raw, m.accessSecret)
	if err != nil {
		return uuid.Nil, "", err
	}

	userID, err := subjectUUID(claims)
	if err != nil {
		return uuid.Nil, "", err
	}

	role, _ := claims["role"].(string)
	return userID, role, nil
}

// ParseRefresh проверяет refresh токен и возвращает идентификатор пользователя.
func (m *TokenManager) ParseRefresh(raw string) (uuid.UUID, error) {
	claims, err := m.parse(raw, m.refreshSecret)
	if err != nil {
		return uuid.Nil, err
	}
	return subjectUUID(claims)
}

func (m *TokenManager) parse(raw string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("token: неожиданный метод подписи %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("token: невалидный токен")
	}
	return claims, nil
}

func subjectUUID(claims jwt.MapClaims) (uuid.UUID, error) {
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token: некорректный subject: %w", err)
	}
	return userID, nil
}
