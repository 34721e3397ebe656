package models

// Алгоритмы деривации ключа из парольной фразы
const (
	KDFArgon2id = "argon2id"
	KDFPBKDF2   = "PBKDF2"
)

// Хеш-функции для PBKDF2
const (
	HashSHA256 = "SHA-256"
	HashSHA512 = "SHA-512"
)

// EncryptedPayload представляет результат AEAD шифрования.
// Для AES-GCM authentication tag входит в конец Ciphertext, AuthTag остается пустым.
type EncryptedPayload struct {
	Ciphertext string `json:"ciphertext"`         // base64 encoded ciphertext (+ tag для GCM)
	IV         string `json:"iv"`                 // base64 encoded nonce (12 bytes)
	AuthTag    string `json:"auth_tag,omitempty"` // base64 encoded отдельный tag, если режим его отделяет
}

// KDFParams описывает параметры деривации ключа
type KDFParams struct {
	Algorithm  string `json:"algorithm"`            // argon2id или PBKDF2
	Hash       string `json:"hash,omitempty"`       // SHA-256/SHA-512 (только PBKDF2)
	Iterations uint32 `json:"iterations"`           // time cost для argon2id, итерации для PBKDF2
	MemoryKiB  uint32 `json:"memory_kib,omitempty"` // только argon2id
	Threads    uint8  `json:"threads,omitempty"`    // только argon2id
}

// MasterKeyEnvelope - мастер-ключ, зашифрованный ключом из парольной фразы.
// Единственная форма мастер-ключа, которая покидает клиента.
type MasterKeyEnvelope struct {
	WrappedKey EncryptedPayload `json:"wrapped_key"`
	Salt       string           `json:"salt"` // base64 encoded salt
	KDF        KDFParams        `json:"kdf"`
}
