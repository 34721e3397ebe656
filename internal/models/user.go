package models

import "time"

// Роли пользователей
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет пользователя в системе
type User struct {
	CreatedAt   time.Time          `json:"created_at"`         // время создания
	UpdatedAt   time.Time          `json:"updated_at"`         // время последнего обновления
	LastLogin   *time.Time         `json:"last_login"`         // время последнего входа
	Envelope    *MasterKeyEnvelope `json:"envelope,omitempty"` // конверт мастер-ключа, nil до настройки шифрования
	ID          string             `json:"id"`                 // UUID пользователя
	Username    string             `json:"username"`           // уникальный username
	AuthKeyHash string             `json:"auth_key_hash"`      // SHA256 хеш auth_key
	PublicSalt  string             `json:"public_salt"`        // base64 encoded salt (32 bytes)
	Role        string             `json:"role"`               // user или admin
}

// IsAdmin сообщает, имеет ли пользователь административные права
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// RefreshToken представляет refresh token пользователя.
// Хранится только SHA256 хеш токена.
type RefreshToken struct {
	ExpiresAt time.Time `json:"expires_at"` // время истечения
	CreatedAt time.Time `json:"created_at"` // время создания
	TokenHash string    `json:"token_hash"` // SHA256 хеш токена
	UserID    string    `json:"user_id"`    // ID пользователя
}

// Actor - аутентифицированный инициатор операции над хранилищем
type Actor struct {
	UserID string
	Admin  bool
}

// CanManage сообщает, может ли actor управлять хранилищем (владелец или администратор)
func (a Actor) CanManage(v *Vault) bool {
	return a.Admin || (v != nil && a.UserID != "" && v.OwnerID == a.UserID)
}
