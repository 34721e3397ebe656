package models

// Letter представляет письмо наследникам.
// При Encrypted=true поля Body, Title, Salutation и Signature содержат base64 ciphertext,
// а EncryptionIV - JSON map {поле: iv}.
type Letter struct {
	ID           string `json:"id"`                   // UUID письма
	VaultID      string `json:"vault_id,omitempty"`   // хранилище, к которому привязано письмо
	Recipient    string `json:"recipient,omitempty"`  // адресат (не шифруется, нужен для маршрутизации)
	Title        string `json:"title,omitempty"`      // заголовок
	Salutation   string `json:"salutation,omitempty"` // обращение ("Dear Emma,")
	Body         string `json:"body"`                 // текст письма, обязательное поле
	Signature    string `json:"signature,omitempty"`  // подпись
	EncryptionIV string `json:"encryption_iv"`        // JSON map IV по полям
	Encrypted    bool   `json:"encrypted"`            // флаг шифрования
}

// MemoryRecord представляет воспоминание (фото, запись, заметку).
// Медиа-контент шифруется отдельно как файл, здесь только текстовые поля.
type MemoryRecord struct {
	ID           string `json:"id"`                    // UUID воспоминания
	Title        string `json:"title"`                 // заголовок, обязательное поле
	Description  string `json:"description,omitempty"` // описание
	MimeType     string `json:"mime_type,omitempty"`   // MIME-тип медиа (не шифруется)
	MediaIV      string `json:"media_iv,omitempty"`    // IV зашифрованного медиа-файла
	EncryptionIV string `json:"encryption_iv"`         // JSON map IV по полям
	Encrypted    bool   `json:"encrypted"`             // флаг шифрования
}
