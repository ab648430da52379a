package common

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/olegbratus/gigflow-backend/internal/dto"
	"github.com/olegbratus/gigflow-backend/internal/http/middleware"
)

var (
	// ErrUserNotFound возвращается, если пользователя нет в контексте.
	ErrUserNotFound = errors.New("пользователь не найден в контексте")

	// ErrInvalidUUID возвращается при некорректном UUID в параметре.
	ErrInvalidUUID = errors.New("неверный формат UUID")
)

// CurrentUserID извлекает userID из контекста gin.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotFound
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUserNotFound
	}

	return userID, nil
}

// CurrentUserRole извлекает роль пользователя из контекста gin.
func CurrentUserRole(c *gin.Context) (string, error) {
	raw, exists := c.Get(middleware.ContextRoleKey)
	if !exists {
		return "", ErrUserNotFound
	}

	role, ok := raw.(string)
	if !ok {
		return "", ErrUserNotFound
	}

	return role, nil
}

// ParseUUIDParam разбирает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, fmt.Errorf("параметр %s отсутствует", paramName)
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}

	return parsed, nil
}

// RespondData отправляет успешный ответ в стандартном конверте.
func RespondData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, dto.Envelope{Success: true, Data: data})
}

// RespondDataWithWarning отправляет успешный ответ с предупреждением.
func RespondDataWithWarning(c *gin.Context, statusCode int, data interface{}, warning string) {
	c.JSON(statusCode, dto.Envelope{Success: true, Data: data, Warning: warning})
}

// RespondPage отправляет успешный ответ с метаданными страницы.
func RespondPage(c *gin.Context, statusCode int, data interface{}, page, pageSize int) {
	c.JSON(statusCode, dto.Envelope{
		Success:    true,
		Data:       data,
		Pagination: &dto.Pagination{Page: page, Limit: pageSize},
	})
}

// RespondError отправляет ошибку в стандартном конверте.
func RespondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, dto.ErrorEnvelope{Success: false, Error: message})
}

// AbortWithError передаёт ошибку в централизованный обработчик.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseIntQuery читает целочисленный query-параметр с запасным значением.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination извлекает page и limit из query-параметров.
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = ParseIntQuery(c, "page", 1)
	pageSize = ParseIntQuery(c, "limit", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return
}
