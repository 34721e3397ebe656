package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/iudanet/legacyvault/internal/client/encryption"
	"github.com/iudanet/legacyvault/internal/models"
)

// bodyTerminator завершает многострочный ввод текста письма
const bodyTerminator = "."

func (c *Cli) runLetter(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: legacyvault letter <write|read|list|delete>")
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "write":
		return c.runLetterWrite(ctx, rest)
	case "read":
		return c.runLetterRead(ctx, rest)
	case "list":
		return c.runLetterList(ctx, rest)
	case "delete":
		return c.runLetterDelete(ctx, rest)
	default:
		return fmt.Errorf("unknown letter command: %s", sub)
	}
}

// runLetterWrite шифрует письмо мастер-ключом и сохраняет локально.
// Открытый текст не попадает в хранилище.
func (c *Cli) runLetterWrite(ctx context.Context, args []string) error {
	fs := c.newFlagSet("letter write")
	vaultID := fs.String("vault", "", "Vault ID (required)")
	recipient := fs.String("recipient", "", "Recipient name")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}
	if *vaultID == "" {
		return errors.New("vault ID is required (-vault)")
	}

	c.io.Println("=== New Letter ===")
	letter := &models.Letter{
		ID:        uuid.New().String(),
		VaultID:   *vaultID,
		Recipient: *recipient,
	}

	var err error
	if letter.Title, err = c.io.ReadInput("Title: "); err != nil {
		return fmt.Errorf("failed to read title: %w", err)
	}
	if letter.Salutation, err = c.io.ReadInput("Salutation: "); err != nil {
		return fmt.Errorf("failed to read salutation: %w", err)
	}
	if letter.Body, err = c.readBody(); err != nil {
		return err
	}
	if letter.Body == "" {
		return errors.New("letter body cannot be empty")
	}
	if letter.Signature, err = c.io.ReadInput("Signature: "); err != nil {
		return fmt.Errorf("failed to read signature: %w", err)
	}

	session, err := c.session(ctx)
	if err != nil {
		return err
	}
	passphrase, err := c.getPassphrase(false)
	if err != nil {
		return err
	}

	err = c.authService.WithMasterKey(ctx, session, passphrase, func(keyCtx *encryption.Context) error {
		sealed, err := encryption.NewService(keyCtx).EncryptLetter(*letter)
		if err != nil {
			return err
		}
		*letter = sealed
		return nil
	})
	if err != nil {
		return err
	}

	if err := c.letters.SaveLetter(ctx, letter); err != nil {
		return fmt.Errorf("failed to save letter: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Letter encrypted and saved!")
	c.io.Printf("ID: %s\n", letter.ID)
	return nil
}

// readBody читает строки до одиночной точки или конца ввода
func (c *Cli) readBody() (string, error) {
	c.io.Printf("Body (finish with a single '%s' line):\n", bodyTerminator)

	var lines []string
	for {
		line, err := c.io.ReadInput("")
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", fmt.Errorf("failed to read body: %w", err)
		}
		if line == bodyTerminator {
			break
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func (c *Cli) runLetterRead(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: legacyvault letter read <letter-id>")
	}

	letter, err := c.letters.GetLetter(ctx, args[0])
	if err != nil {
		return err
	}

	session, err := c.session(ctx)
	if err != nil {
		return err
	}
	passphrase, err := c.getPassphrase(false)
	if err != nil {
		return err
	}

	err = c.authService.WithMasterKey(ctx, session, passphrase, func(keyCtx *encryption.Context) error {
		plain, err := encryption.NewService(keyCtx).DecryptLetter(*letter)
		if err != nil {
			return err
		}
		*letter = plain
		return nil
	})
	if err != nil {
		return err
	}

	c.io.Println()
	if letter.Title != "" {
		c.io.Printf("=== %s ===\n", letter.Title)
	}
	if letter.Recipient != "" {
		c.io.Printf("To: %s\n", letter.Recipient)
	}
	c.io.Println()
	if letter.Salutation != "" {
		c.io.Println(letter.Salutation)
		c.io.Println()
	}
	c.io.Println(letter.Body)
	if letter.Signature != "" {
		c.io.Println()
		c.io.Println(letter.Signature)
	}
	return nil
}

// runLetterList печатает только открытые поля, расшифровка не нужна
func (c *Cli) runLetterList(ctx context.Context, args []string) error {
	fs := c.newFlagSet("letter list")
	vaultID := fs.String("vault", "", "Filter by vault ID")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}

	letters, err := c.letters.ListLetters(ctx, *vaultID)
	if err != nil {
		return fmt.Errorf("failed to list letters: %w", err)
	}
	if len(letters) == 0 {
		c.io.Println("No letters.")
		return nil
	}

	c.io.Printf("Letters (%d):\n", len(letters))
	for _, l := range letters {
		recipient := l.Recipient
		if recipient == "" {
			recipient = "-"
		}
		c.io.Printf("  %s  vault: %s  to: %s\n", l.ID, l.VaultID, recipient)
	}
	return nil
}

func (c *Cli) runLetterDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: legacyvault letter delete <letter-id>")
	}
	if err := c.letters.DeleteLetter(ctx, args[0]); err != nil {
		return err
	}
	c.io.Printf("✓ Letter %s deleted\n", args[0])
	return nil
}
