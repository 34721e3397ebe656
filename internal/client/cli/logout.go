package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/legacyvault/internal/client/auth"
)

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	if _, _, err := c.authService.Status(ctx); err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			c.io.Println("Not logged in.")
			return nil
		}
		return fmt.Errorf("failed to check authentication: %w", err)
	}

	// без расшифрованной сессии сервер не уведомляется, локальные данные удаляются все равно
	var accessToken string
	session, err := c.session(ctx)
	if err != nil {
		c.io.Printf("Warning: server session not revoked: %s\n", DescribeError(err))
	} else {
		accessToken = session.AccessToken
	}

	if err := c.authService.Logout(ctx, accessToken); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")

	return nil
}
