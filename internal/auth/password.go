package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost стоимость bcrypt для паролей аккаунтов
const DefaultCost = 10

// PasswordHasher хеширует и проверяет пароли через bcrypt.
// Стоимость задается при создании и дальше не меняется.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher создает hasher с заданной стоимостью bcrypt.
// Значение вне допустимого диапазона заменяется на DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost возвращает настроенную стоимость
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash возвращает bcrypt хеш пароля с солью.
// Для одного и того же пароля каждый вызов дает новую строку.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify сообщает, совпадает ли пароль с сохраненным хешем.
// Битый хеш просто не совпадает.
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
