// Package validation проверяет пользовательский ввод, общий для клиента и сервера.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"unicode/utf8"
)

// Ограничения учетных данных
const (
	MinUsernameLen = 3
	MaxUsernameLen = 32
	MinPasswordLen = 12
	MaxEmailLen    = 254
)

// usernamePattern - латиница, цифры и подчеркивание
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateUsername проверяет имя пользователя: 3-32 символа [a-zA-Z0-9_]
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return fmt.Errorf("username cannot be empty")
	case len(username) < MinUsernameLen:
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	case len(username) > MaxUsernameLen:
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	case !usernamePattern.MatchString(username):
		return fmt.Errorf("username can only contain letters (a-z, A-Z), numbers (0-9), and underscores (_)")
	}
	return nil
}

// ValidatePassword проверяет мастер-пароль и парольную фразу мастер-ключа.
// Длина считается в символах, а не в байтах.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}
	return nil
}

// ValidateEmail проверяет адрес для уведомлений о наследовании.
// Допускается только голый адрес, без display name.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLen)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("invalid email address %q", email)
	}
	return nil
}
