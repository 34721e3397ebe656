package encryption

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

func TestService_LetterRoundTrip(t *testing.T) {
	c, _, _ := setupContext(t, "pass")
	defer c.Clear()
	svc := NewService(c)

	tests := []struct {
		letter   models.Letter
		name     string
		wantIVs  []string
		wantNone []string
	}{
		{
			name: "all fields",
			letter: models.Letter{
				ID:         "l1",
				Recipient:  "emma",
				Title:      "For Emma",
				Salutation: "Dear Emma,",
				Body:       "The garden is yours now.",
				Signature:  "Grandpa",
			},
			wantIVs: []string{"title", "salutation", "body", "signature"},
		},
		{
			name:     "optional fields empty",
			letter:   models.Letter{ID: "l2", Body: "Short note."},
			wantIVs:  []string{"body"},
			wantNone: []string{"title", "salutation", "signature"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := svc.EncryptLetter(tt.letter)
			require.NoError(t, err)
			assert.True(t, enc.Encrypted)
			assert.Equal(t, tt.letter.ID, enc.ID)
			assert.Equal(t, tt.letter.Recipient, enc.Recipient)
			assert.NotEqual(t, tt.letter.Body, enc.Body)

			var ivs map[string]string
			require.NoError(t, json.Unmarshal([]byte(enc.EncryptionIV), &ivs))
			for _, name := range tt.wantIVs {
				assert.NotEmpty(t, ivs[name], name)
			}
			for _, name := range tt.wantNone {
				assert.NotContains(t, ivs, name)
			}

			dec, err := svc.DecryptLetter(enc)
			require.NoError(t, err)
			assert.Equal(t, tt.letter, dec)
		})
	}
}

func TestService_MemoryRoundTrip(t *testing.T) {
	c, _, _ := setupContext(t, "pass")
	defer c.Clear()
	svc := NewService(c)

	memory := models.MemoryRecord{
		ID:          "m1",
		Title:       "Wedding day",
		Description: "Rain all morning, sun by the vows.",
		MimeType:    "image/jpeg",
	}

	enc, err := svc.EncryptMemory(memory)
	require.NoError(t, err)
	assert.True(t, enc.Encrypted)
	assert.Equal(t, "image/jpeg", enc.MimeType)
	assert.NotEqual(t, memory.Title, enc.Title)

	// повторное шифрование не меняет запись
	again, err := svc.EncryptMemory(enc)
	require.NoError(t, err)
	assert.Equal(t, enc, again)

	dec, err := svc.DecryptMemory(enc)
	require.NoError(t, err)
	assert.Equal(t, memory, dec)
}

func TestService_DecryptPlainRecordIsNoop(t *testing.T) {
	c, _, _ := setupContext(t, "pass")
	defer c.Clear()
	svc := NewService(c)

	plain := models.Letter{ID: "legacy", Body: "written before encryption"}
	got, err := svc.DecryptLetter(plain)
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	mem := models.MemoryRecord{ID: "legacy", Title: "old"}
	gotMem, err := svc.DecryptMemory(mem)
	require.NoError(t, err)
	assert.Equal(t, mem, gotMem)
}

func TestService_LockedContext(t *testing.T) {
	c, _, _ := setupContext(t, "pass")
	svc := NewService(c)

	enc, err := svc.EncryptLetter(models.Letter{Body: "hi"})
	require.NoError(t, err)
	c.Clear()

	_, err = svc.DecryptLetter(enc)
	assert.ErrorIs(t, err, vaulterr.ErrVaultLocked)

	_, err = svc.DecryptMemory(models.MemoryRecord{Title: "sealed", Encrypted: true, EncryptionIV: `{"title":"x"}`})
	assert.ErrorIs(t, err, vaulterr.ErrVaultLocked)

	_, err = svc.EncryptLetter(models.Letter{Body: "hi"})
	assert.ErrorIs(t, err, vaulterr.ErrVaultLocked)
	_, err = svc.EncryptMemory(models.MemoryRecord{Title: "hi"})
	assert.ErrorIs(t, err, vaulterr.ErrVaultLocked)
}

func TestService_DecryptPlainRecordWithoutKey(t *testing.T) {
	svc := NewService(NewContext())

	tests := []struct {
		name   string
		letter models.Letter
	}{
		{"written before encryption", models.Letter{ID: "l1", Body: "written before encryption"}},
		{"encrypted flag without iv", models.Letter{ID: "l2", Body: "old body", Encrypted: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.DecryptLetter(tt.letter)
			require.NoError(t, err)
			assert.Equal(t, tt.letter, got)
		})
	}

	memory := models.MemoryRecord{ID: "m1", Title: "plain"}
	got, err := svc.DecryptMemory(memory)
	require.NoError(t, err)
	assert.Equal(t, memory, got)
}

func TestService_TamperedRecord(t *testing.T) {
	c, _, _ := setupContext(t, "pass")
	defer c.Clear()
	svc := NewService(c)

	enc, err := svc.EncryptLetter(models.Letter{Title: "t", Body: "b"})
	require.NoError(t, err)

	tests := []struct {
		mutate func(*models.Letter)
		name   string
	}{
		{name: "malformed iv map", mutate: func(l *models.Letter) { l.EncryptionIV = "not json" }},
		{name: "missing iv", mutate: func(l *models.Letter) { l.EncryptionIV = `{"body":"` + mustIV(t, enc, "body") + `"}` }},
		{name: "swapped ivs", mutate: func(l *models.Letter) {
			l.EncryptionIV = `{"title":"` + mustIV(t, enc, "body") + `","body":"` + mustIV(t, enc, "title") + `"}`
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := enc
			tt.mutate(&l)
			_, err := svc.DecryptLetter(l)
			assert.ErrorIs(t, err, vaulterr.ErrIntegrity)
		})
	}
}

func mustIV(t *testing.T, l models.Letter, field string) string {
	t.Helper()
	var ivs map[string]string
	require.NoError(t, json.Unmarshal([]byte(l.EncryptionIV), &ivs))
	return ivs[field]
}
