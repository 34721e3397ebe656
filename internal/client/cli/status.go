package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/legacyvault/internal/client/auth"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Authentication Status ===")
	c.io.Println()

	authData, valid, err := c.authService.Status(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			c.io.Println("Status: Not authenticated")
			c.io.Println()
			c.io.Println("Run 'legacyvault login' to authenticate.")
			return nil
		}
		return fmt.Errorf("failed to check authentication: %w", err)
	}

	expiresAt := time.Unix(authData.ExpiresAt, 0)

	c.io.Println("Status: Authenticated")
	c.io.Printf("Username: %s\n", authData.Username)
	if authData.UserID != "" {
		c.io.Printf("User ID: %s\n", authData.UserID)
	}
	c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))

	if valid {
		c.io.Printf("Time remaining: %s\n", time.Until(expiresAt).Round(time.Second))
	} else {
		c.io.Println("⚠️  Access token has expired. It will be refreshed on the next command.")
	}

	return nil
}
