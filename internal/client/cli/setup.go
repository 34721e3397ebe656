package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/legacyvault/internal/validation"
)

// runSetup создает мастер-ключ и отправляет на сервер его конверт
func (c *Cli) runSetup(ctx context.Context) error {
	c.io.Println("=== Encryption Setup ===")
	c.io.Println()

	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	passphrase, err := c.getPassphrase(true)
	if err != nil {
		return err
	}
	if err := validation.ValidatePassword(passphrase); err != nil {
		return fmt.Errorf("invalid passphrase: %w", err)
	}

	c.io.Println("Generating master key...")
	if err := c.authService.SetupEncryption(ctx, session, passphrase, c.kdf); err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Master key created!")
	c.io.Println("Only the passphrase-wrapped key was sent to the server.")
	c.io.Println()
	c.io.Println("⚠️  IMPORTANT: Without the vault passphrase your letters cannot be decrypted.")

	return nil
}
