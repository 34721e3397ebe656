package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/legacyvault/internal/client/auth"
	"github.com/iudanet/legacyvault/internal/models"
	pkgapi "github.com/iudanet/legacyvault/pkg/api"
)

func (c *Cli) runVault(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: legacyvault vault <create|list|show|open|unlock|issue-token|tokens|revoke|logs|inherit|cancel-inheritance|archive>")
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "create":
		return c.runVaultCreate(ctx, rest)
	case "list":
		return c.runVaultList(ctx)
	case "show":
		return c.withVaultID(ctx, sub, rest, c.runVaultShow)
	case "open":
		return c.withVaultID(ctx, sub, rest, c.runVaultOpen)
	case "unlock":
		return c.runVaultUnlock(ctx, rest)
	case "issue-token":
		return c.runVaultIssueToken(ctx, rest)
	case "tokens":
		return c.withVaultID(ctx, sub, rest, c.runVaultTokens)
	case "revoke":
		return c.runVaultRevoke(ctx, rest)
	case "logs":
		return c.runVaultLogs(ctx, rest)
	case "inherit":
		return c.runVaultInherit(ctx, rest)
	case "cancel-inheritance":
		return c.withVaultID(ctx, sub, rest, c.runVaultCancelInheritance)
	case "archive":
		return c.withVaultID(ctx, sub, rest, c.runVaultArchive)
	default:
		return fmt.Errorf("unknown vault command: %s", sub)
	}
}

// withVaultID проверяет единственный аргумент ID и открывает сессию
func (c *Cli) withVaultID(ctx context.Context, sub string, args []string, fn func(ctx context.Context, accessToken, vaultID string) error) error {
	if len(args) != 1 || args[0] == "" {
		return fmt.Errorf("usage: legacyvault vault %s <vault-id>", sub)
	}
	session, err := c.session(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, session.AccessToken, args[0])
}

func (c *Cli) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.io)
	return fs
}

func (c *Cli) runVaultCreate(ctx context.Context, args []string) error {
	fs := c.newFlagSet("vault create")
	name := fs.String("name", "", "Vault name (required)")
	description := fs.String("description", "", "Vault description")
	tags := fs.String("tags", "", "Comma-separated tags")
	unlockDate := fs.String("unlock-date", "", "Scheduled unlock date (RFC3339)")
	unlockers := fs.String("unlockers", "", "Comma-separated user IDs allowed to unlock")
	delayHours := fs.Int("delay-hours", models.DefaultInheritanceSettings().DelayHours, "Inheritance delay after first unlock")
	noAuto := fs.Bool("no-auto-inherit", false, "Disable automatic inheritance on unlock")
	notify := fs.String("notify", "", "Comma-separated notification emails")
	message := fs.String("message", "", "Inheritance message for heirs")
	backups := fs.Int("backup-count", 0, "Number of backup tokens (0 - server default)")
	maxUsages := fs.Int("max-usages", 0, "Usage limit of the primary token (0 - unlimited)")
	expires := fs.String("expires", "", "Primary token expiration (RFC3339)")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}
	if *name == "" {
		return errors.New("vault name is required (-name)")
	}

	req := pkgapi.CreateVaultRequest{
		Name:        *name,
		Description: *description,
		Tags:        splitList(*tags),
		BackupCount: *backups,
		UnlockConditions: models.UnlockConditions{
			AllowedUnlockers: splitList(*unlockers),
		},
		Inheritance: &models.InheritanceSettings{
			AutomaticInheritance: !*noAuto,
			DelayHours:           *delayHours,
			NotificationEmails:   splitList(*notify),
			InheritanceMessage:   *message,
		},
	}

	var err error
	if req.UnlockDate, err = parseTime(*unlockDate); err != nil {
		return fmt.Errorf("invalid -unlock-date: %w", err)
	}
	if req.PrimaryToken.ExpiresAt, err = parseTime(*expires); err != nil {
		return fmt.Errorf("invalid -expires: %w", err)
	}
	req.PrimaryToken.MaxUsages = optionalLimit(*maxUsages)

	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	resp, err := c.vaults.CreateVault(ctx, session.AccessToken, req)
	if err != nil {
		return err
	}

	c.io.Println("✓ Vault created!")
	c.io.Printf("ID:     %s\n", resp.Vault.ID)
	c.io.Printf("Name:   %s\n", resp.Vault.Name)
	c.io.Printf("Status: %s\n", resp.Vault.Status)
	c.io.Println()
	c.io.Println("Unlock tokens:")
	for _, issued := range resp.Tokens {
		c.io.Printf("  %-9s %s\n", issued.Token.Type, issued.Secret)
	}
	c.io.Println()
	c.io.Println("⚠️  IMPORTANT: Store these tokens safely. They will NOT be shown again.")

	return nil
}

func (c *Cli) runVaultList(ctx context.Context) error {
	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	resp, err := c.vaults.ListVaults(ctx, session.AccessToken)
	if err != nil {
		return err
	}

	c.io.Println("=== Owned Vaults ===")
	c.printVaults(resp.Owned)
	c.io.Println()
	c.io.Println("=== Inherited Vaults ===")
	c.printVaults(resp.Inherited)
	return nil
}

func (c *Cli) printVaults(vaults []*models.Vault) {
	if len(vaults) == 0 {
		c.io.Println("  (none)")
		return
	}
	for _, v := range vaults {
		c.io.Printf("  %s  %-9s %s\n", v.ID, v.Status, v.Name)
	}
}

func (c *Cli) runVaultShow(ctx context.Context, accessToken, vaultID string) error {
	v, err := c.vaults.GetVault(ctx, accessToken, vaultID)
	if err != nil {
		return err
	}
	c.printVault(v)
	return nil
}

func (c *Cli) printVault(v *models.Vault) {
	c.io.Printf("ID:          %s\n", v.ID)
	c.io.Printf("Name:        %s\n", v.Name)
	if v.Description != "" {
		c.io.Printf("Description: %s\n", v.Description)
	}
	c.io.Printf("Status:      %s\n", v.Status)
	c.io.Printf("Owner:       %s\n", v.OwnerID)
	c.io.Printf("Created:     %s\n", v.CreatedAt.Format(time.RFC3339))
	printOptionalTime(c, "Unlock date: ", v.UnlockDate)
	printOptionalTime(c, "Unlocked:    ", v.UnlockedAt)
	printOptionalTime(c, "Inherited:   ", v.InheritedAt)
	printOptionalTime(c, "Archived:    ", v.ArchivedAt)
	if len(v.Metadata.Tags) > 0 {
		c.io.Printf("Tags:        %s\n", strings.Join(v.Metadata.Tags, ", "))
	}
	if v.Inheritance.AutomaticInheritance {
		c.io.Printf("Inheritance: automatic, %dh after first unlock\n", v.Inheritance.DelayHours)
	} else {
		c.io.Println("Inheritance: manual only")
	}
}

func printOptionalTime(c *Cli, label string, t *time.Time) {
	if t != nil {
		c.io.Printf("%s%s\n", label, t.Format(time.RFC3339))
	}
}

func (c *Cli) runVaultOpen(ctx context.Context, accessToken, vaultID string) error {
	v, err := c.vaults.OpenVault(ctx, accessToken, vaultID)
	if err != nil {
		return err
	}
	c.io.Println("✓ Vault opened")
	c.printVault(v)
	return nil
}

// runVaultUnlock разблокирует хранилище по токену.
// Токен читается без эха, если не передан аргументом.
func (c *Cli) runVaultUnlock(ctx context.Context, args []string) error {
	fs := c.newFlagSet("vault unlock")
	anonymous := fs.Bool("anonymous", false, "Unlock without the local session")
	location := fs.String("location", "", "Location reported to the access log")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}

	token := fs.Arg(0)
	if token == "" {
		var err error
		token, err = c.io.ReadPassword("Unlock token: ")
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
	}
	if token == "" {
		return errors.New("token cannot be empty")
	}

	var accessToken string
	if !*anonymous {
		session, err := c.session(ctx)
		switch {
		case errors.Is(err, auth.ErrNotAuthenticated):
			// держатель токена может не иметь учетной записи
		case err != nil:
			return err
		default:
			accessToken = session.AccessToken
		}
	}

	resp, err := c.vaults.UnlockVault(ctx, accessToken, pkgapi.UnlockRequest{
		Token:    token,
		Location: *location,
	})
	if err != nil {
		return err
	}

	c.io.Printf("✓ %s\n", resp.Message)
	c.printVault(resp.Vault)
	return nil
}

func (c *Cli) runVaultIssueToken(ctx context.Context, args []string) error {
	fs := c.newFlagSet("vault issue-token")
	typ := fs.String("type", string(models.TokenBackup), "Token type (primary, backup, emergency, temporary)")
	maxUsages := fs.Int("max-usages", 0, "Usage limit (0 - unlimited)")
	expires := fs.String("expires", "", "Expiration (RFC3339)")
	ips := fs.String("ip", "", "Comma-separated IP addresses or CIDR ranges")
	hours := fs.String("hours", "", "Comma-separated allowed hours (0-23)")
	days := fs.String("days", "", "Comma-separated allowed days (0-6, Sunday = 0)")
	tz := fs.String("tz", "", "IANA timezone for hours and days (default UTC)")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}
	if fs.NArg() != 1 {
		return errors.New("usage: legacyvault vault issue-token [flags] <vault-id>")
	}

	policy := pkgapi.TokenPolicy{
		Type:      models.TokenType(*typ),
		MaxUsages: optionalLimit(*maxUsages),
		Restrictions: models.TokenRestrictions{
			IPWhitelist: splitList(*ips),
		},
	}
	if !policy.Type.Valid() {
		return fmt.Errorf("unknown token type: %s", *typ)
	}

	var err error
	if policy.ExpiresAt, err = parseTime(*expires); err != nil {
		return fmt.Errorf("invalid -expires: %w", err)
	}
	if *hours != "" || *days != "" || *tz != "" {
		allowedHours, err := parseInts(*hours)
		if err != nil {
			return fmt.Errorf("invalid -hours: %w", err)
		}
		allowedDays, err := parseInts(*days)
		if err != nil {
			return fmt.Errorf("invalid -days: %w", err)
		}
		policy.Restrictions.Time = &models.TimeRestrictions{
			AllowedHours: allowedHours,
			AllowedDays:  allowedDays,
			Timezone:     *tz,
		}
	}

	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	issued, err := c.vaults.IssueToken(ctx, session.AccessToken, fs.Arg(0), policy)
	if err != nil {
		return err
	}

	c.io.Println("✓ Token issued!")
	c.io.Printf("Token ID: %s\n", issued.Token.ID)
	c.io.Printf("Type:     %s\n", issued.Token.Type)
	c.io.Printf("Secret:   %s\n", issued.Secret)
	c.io.Println()
	c.io.Println("⚠️  IMPORTANT: The secret will NOT be shown again.")
	return nil
}

func (c *Cli) runVaultTokens(ctx context.Context, accessToken, vaultID string) error {
	tokens, err := c.vaults.ListTokens(ctx, accessToken, vaultID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		c.io.Println("No tokens.")
		return nil
	}

	for _, t := range tokens {
		state := "active"
		if !t.IsActive {
			state = "revoked"
		}
		usage := strconv.Itoa(t.UsageCount)
		if t.MaxUsages != nil {
			usage += "/" + strconv.Itoa(*t.MaxUsages)
		}
		c.io.Printf("%s  %-9s %-7s uses: %s", t.ID, t.Type, state, usage)
		if t.ExpiresAt != nil {
			c.io.Printf("  expires: %s", t.ExpiresAt.Format(time.RFC3339))
		}
		c.io.Println()
	}
	return nil
}

func (c *Cli) runVaultRevoke(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: legacyvault vault revoke <vault-id> <token-id>")
	}
	session, err := c.session(ctx)
	if err != nil {
		return err
	}
	if err := c.vaults.RevokeToken(ctx, session.AccessToken, args[0], args[1]); err != nil {
		return err
	}
	c.io.Printf("✓ Token %s revoked\n", args[1])
	return nil
}

func (c *Cli) runVaultLogs(ctx context.Context, args []string) error {
	fs := c.newFlagSet("vault logs")
	limit := fs.Int("limit", 20, "Number of entries")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}
	if fs.NArg() != 1 {
		return errors.New("usage: legacyvault vault logs [-limit N] <vault-id>")
	}

	session, err := c.session(ctx)
	if err != nil {
		return err
	}
	logs, err := c.vaults.AccessLogs(ctx, session.AccessToken, fs.Arg(0), *limit)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		c.io.Println("No access log entries.")
		return nil
	}

	for _, entry := range logs {
		result := "granted"
		if !entry.Success {
			result = "denied: " + entry.FailureReason
		}
		c.io.Printf("%s  %-16s %-15s %s\n",
			entry.Timestamp.Format(time.RFC3339), entry.AccessType, entry.IP, result)
	}
	return nil
}

func (c *Cli) runVaultInherit(ctx context.Context, args []string) error {
	fs := c.newFlagSet("vault inherit")
	event := fs.String("event", string(models.TriggerManual), "Trigger event (manual_trigger, death_certificate)")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}
	if fs.NArg() != 1 {
		return errors.New("usage: legacyvault vault inherit [-event EVENT] <vault-id>")
	}
	if !models.TriggerEvent(*event).Valid() {
		return fmt.Errorf("unknown trigger event: %s", *event)
	}

	session, err := c.session(ctx)
	if err != nil {
		return err
	}
	record, err := c.vaults.TriggerInheritance(ctx, session.AccessToken, fs.Arg(0), models.TriggerEvent(*event))
	if err != nil {
		return err
	}

	c.io.Println("✓ Inheritance scheduled")
	c.io.Printf("Record: %s\n", record.ID)
	c.io.Printf("Status: %s\n", record.Status)
	c.io.Printf("Due at: %s\n", record.DueAt.Format(time.RFC3339))
	return nil
}

func (c *Cli) runVaultCancelInheritance(ctx context.Context, accessToken, vaultID string) error {
	if err := c.vaults.CancelInheritance(ctx, accessToken, vaultID); err != nil {
		return err
	}
	c.io.Println("✓ Pending inheritance cancelled")
	return nil
}

func (c *Cli) runVaultArchive(ctx context.Context, accessToken, vaultID string) error {
	v, err := c.vaults.ArchiveVault(ctx, accessToken, vaultID)
	if err != nil {
		return err
	}
	c.io.Printf("✓ Vault %s archived\n", v.ID)
	return nil
}

// flagError скрывает flag.ErrHelp: справка уже напечатана
func flagError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	parts := splitList(s)
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalLimit(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}
