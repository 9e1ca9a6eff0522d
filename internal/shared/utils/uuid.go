package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// NewUUID генерирует новый UUID v4
func NewUUID() string {
	return uuid.New().String()
}

// IsUUID проверяет, что строка - валидный UUID
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// TrackingNumber форматирует номер отслеживания: 7 -> AE007
func TrackingNumber(seq int) string {
	return fmt.Sprintf("AE%03d", seq)
}
