// Package encryption держит мастер-ключ пользователя на стороне клиента.
// Мастер-ключ существует только в памяти процесса; наружу уходит лишь
// конверт, зашифрованный ключом из парольной фразы.
package encryption

import (
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	"github.com/iudanet/legacyvault/internal/crypto"
	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

// State - состояние контекста шифрования
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateCleared
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateCleared:
		return "cleared"
	default:
		return "uninitialized"
	}
}

// Context - владелец мастер-ключа на время сессии.
// Создается вызывающим кодом и должен быть закрыт через Clear.
type Context struct {
	key   []byte
	mu    sync.RWMutex
	state State
}

// NewContext создает неинициализированный контекст
func NewContext() *Context {
	return &Context{}
}

// Open инициализирует контекст, вызывает fn и очищает ключ на любом пути выхода
func Open(passphrase string, salt []byte, envelope *models.MasterKeyEnvelope, fn func(*Context) error) error {
	c := NewContext()
	defer c.Clear()

	if err := c.Initialize(passphrase, salt, envelope); err != nil {
		return err
	}
	return fn(c)
}

// Initialize загружает мастер-ключ.
// С конвертом ключ распаковывается ключом из парольной фразы, любая ошибка
// возвращается как vaulterr.ErrAuthentication. Без конверта генерируется новый ключ.
// Повторный вызов заменяет ключ, старый затирается.
func (c *Context) Initialize(passphrase string, salt []byte, envelope *models.MasterKeyEnvelope) error {
	var (
		key []byte
		err error
	)
	if envelope != nil {
		key, err = crypto.UnwrapKey(envelope, passphrase, salt)
		if err != nil {
			return vaulterr.ErrAuthentication
		}
	} else {
		key, err = crypto.RandomBytes(crypto.KeySize)
		if err != nil {
			return fmt.Errorf("failed to generate master key: %w", err)
		}
	}
	// ошибка mlock не фатальна
	_ = crypto.LockMemory(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.wipe()
	c.key = key
	c.state = StateInitialized
	return nil
}

// WrapMasterKey шифрует текущий мастер-ключ ключом из парольной фразы.
// Результат безопасно хранить на сервере.
func (c *Context) WrapMasterKey(passphrase string, salt []byte, params models.KDFParams) (*models.MasterKeyEnvelope, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateInitialized {
		return nil, vaulterr.ErrVaultLocked
	}
	return crypto.WrapKey(c.key, passphrase, salt, params)
}

// State возвращает текущее состояние
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// EncryptText шифрует строку со свежим IV
func (c *Context) EncryptText(plaintext string) (*models.EncryptedPayload, error) {
	return c.seal([]byte(plaintext))
}

// DecryptText расшифровывает строку, зашифрованную EncryptText
func (c *Context) DecryptText(payload *models.EncryptedPayload) (string, error) {
	plaintext, err := c.open(payload)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptFile читает содержимое r целиком и шифрует его
func (c *Context) EncryptFile(r io.Reader) (*models.EncryptedPayload, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer crypto.Zero(data)
	return c.seal(data)
}

// DecryptFile расшифровывает содержимое файла
func (c *Context) DecryptFile(payload *models.EncryptedPayload) ([]byte, error) {
	return c.open(payload)
}

// Clear затирает ключ. После Clear контекст можно инициализировать заново.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.wipe()
	if c.state == StateInitialized {
		c.state = StateCleared
	}
}

// wipe вызывается под mu.Lock
func (c *Context) wipe() {
	if c.key == nil {
		return
	}
	crypto.Zero(c.key)
	_ = crypto.UnlockMemory(c.key)
	c.key = nil
}

func (c *Context) ensureInitialized() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateInitialized {
		return vaulterr.ErrVaultLocked
	}
	return nil
}

func (c *Context) seal(plaintext []byte) (*models.EncryptedPayload, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateInitialized {
		return nil, vaulterr.ErrVaultLocked
	}
	return crypto.Seal(c.key, plaintext)
}

func (c *Context) open(payload *models.EncryptedPayload) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateInitialized {
		return nil, vaulterr.ErrVaultLocked
	}
	return crypto.Open(c.key, payload)
}

// DecodeSalt декодирует base64 соль из конверта
func DecodeSalt(s string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	return salt, nil
}
