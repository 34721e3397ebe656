// Package cli реализует команды клиента LegacyVault.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/iudanet/legacyvault/internal/client/api"
	"github.com/iudanet/legacyvault/internal/client/auth"
	"github.com/iudanet/legacyvault/internal/client/iocli"
	"github.com/iudanet/legacyvault/internal/client/storage"
	"github.com/iudanet/legacyvault/internal/crypto"
	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/vaulterr"
	pkgapi "github.com/iudanet/legacyvault/pkg/api"
)

// Переменные окружения с секретами
const (
	EnvMasterPassword = "LEGACYVAULT_MASTER_PASSWORD"
	EnvPassphrase     = "LEGACYVAULT_PASSPHRASE"
)

// VaultAPI - серверные операции с хранилищами
type VaultAPI interface {
	CreateVault(ctx context.Context, accessToken string, req pkgapi.CreateVaultRequest) (*pkgapi.CreateVaultResponse, error)
	ListVaults(ctx context.Context, accessToken string) (*pkgapi.VaultListResponse, error)
	GetVault(ctx context.Context, accessToken, vaultID string) (*models.Vault, error)
	OpenVault(ctx context.Context, accessToken, vaultID string) (*models.Vault, error)
	UnlockVault(ctx context.Context, accessToken string, req pkgapi.UnlockRequest) (*pkgapi.UnlockResponse, error)
	IssueToken(ctx context.Context, accessToken, vaultID string, policy pkgapi.TokenPolicy) (*models.IssuedToken, error)
	ListTokens(ctx context.Context, accessToken, vaultID string) ([]*models.VaultToken, error)
	RevokeToken(ctx context.Context, accessToken, vaultID, tokenID string) error
	AccessLogs(ctx context.Context, accessToken, vaultID string, limit int) ([]*models.VaultAccessLog, error)
	TriggerInheritance(ctx context.Context, accessToken, vaultID string, event models.TriggerEvent) (*models.VaultInheritance, error)
	CancelInheritance(ctx context.Context, accessToken, vaultID string) error
	ArchiveVault(ctx context.Context, accessToken, vaultID string) (*models.Vault, error)
}

// Passwords - источники мастер-пароля из флагов
type Passwords struct {
	FromFile string
	FromArgs string
}

type Cli struct {
	io          iocli.IO
	authService *auth.Service
	vaults      VaultAPI
	letters     storage.LetterStorage
	getenv      func(string) string
	passwords   Passwords
	kdf         models.KDFParams
}

// Option настраивает Cli
type Option func(*Cli)

// WithPasswords задает источники мастер-пароля из флагов
func WithPasswords(p Passwords) Option {
	return func(c *Cli) {
		c.passwords = p
	}
}

// WithEnv подменяет чтение переменных окружения
func WithEnv(getenv func(string) string) Option {
	return func(c *Cli) {
		c.getenv = getenv
	}
}

// WithKDFParams задает параметры деривации ключа для новых конвертов
func WithKDFParams(params models.KDFParams) Option {
	return func(c *Cli) {
		c.kdf = params
	}
}

func New(io iocli.IO, authService *auth.Service, vaults VaultAPI, letters storage.LetterStorage, opts ...Option) *Cli {
	c := &Cli{
		io:          io,
		authService: authService,
		vaults:      vaults,
		letters:     letters,
		getenv:      os.Getenv,
		kdf:         crypto.DefaultKDFParams(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run выполняет команду из args
func (c *Cli) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		PrintUsage(c.io)
		return errors.New("no command given")
	}

	switch args[0] {
	case "register":
		return c.runRegister(ctx)
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "setup":
		return c.runSetup(ctx)
	case "vault":
		return c.runVault(ctx, args[1:])
	case "letter":
		return c.runLetter(ctx, args[1:])
	case "help":
		PrintUsage(c.io)
		return nil
	default:
		PrintUsage(c.io)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// session расшифровывает локальную сессию мастер-паролем.
// Пароль не запрашивается, если сессии нет.
func (c *Cli) session(ctx context.Context) (*storage.AuthData, error) {
	if _, _, err := c.authService.Status(ctx); err != nil {
		return nil, err
	}
	password, err := c.getMasterPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to get master password: %w", err)
	}
	return c.authService.Session(ctx, password)
}

// getMasterPassword возвращает мастер-пароль. Приоритет источников:
// переменная окружения, файл, параметр командной строки, интерактивный ввод.
func (c *Cli) getMasterPassword() (string, error) {
	password, ok, err := c.presetMasterPassword()
	if err != nil || ok {
		return password, err
	}

	password, err = c.io.ReadPassword("Master password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	return password, nil
}

// presetMasterPassword возвращает пароль из неинтерактивных источников
func (c *Cli) presetMasterPassword() (string, bool, error) {
	if envPassword := c.getenv(EnvMasterPassword); envPassword != "" {
		return envPassword, true, nil
	}

	if c.passwords.FromFile != "" {
		content, err := os.ReadFile(c.passwords.FromFile)
		if err != nil {
			return "", false, fmt.Errorf("failed to read password file: %w", err)
		}
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", false, errors.New("password file is empty")
		}
		return password, true, nil
	}

	if c.passwords.FromArgs != "" {
		return c.passwords.FromArgs, true, nil
	}
	return "", false, nil
}

// newMasterPassword запрашивает новый пароль с подтверждением
func (c *Cli) newMasterPassword() (string, error) {
	password, ok, err := c.presetMasterPassword()
	if err != nil || ok {
		return password, err
	}
	return c.readConfirmed("Master password: ", "Confirm master password: ")
}

// getPassphrase возвращает парольную фразу мастер-ключа
func (c *Cli) getPassphrase(confirm bool) (string, error) {
	if env := c.getenv(EnvPassphrase); env != "" {
		return env, nil
	}
	if confirm {
		return c.readConfirmed("Vault passphrase: ", "Confirm vault passphrase: ")
	}
	passphrase, err := c.io.ReadPassword("Vault passphrase: ")
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if passphrase == "" {
		return "", errors.New("passphrase cannot be empty")
	}
	return passphrase, nil
}

func (c *Cli) readConfirmed(prompt, confirmPrompt string) (string, error) {
	first, err := c.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	second, err := c.io.ReadPassword(confirmPrompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

// DescribeError переводит ошибку в сообщение для пользователя
func DescribeError(err error) string {
	switch {
	case errors.Is(err, vaulterr.ErrAuthentication):
		return "wrong passphrase or damaged key envelope, please try again"
	case errors.Is(err, vaulterr.ErrVaultLocked):
		return "encryption context is locked, unlock it with your vault passphrase first"
	case errors.Is(err, vaulterr.ErrIntegrity):
		return "integrity check failed: the data was modified or corrupted"
	}

	var statusErr *api.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusForbidden:
			return "access denied"
		case http.StatusUnauthorized:
			return "session is not valid, run 'legacyvault login'"
		case http.StatusNotFound:
			return "not found: " + statusErr.Message
		case http.StatusTooManyRequests:
			return "too many requests, try again later"
		}
	}
	return err.Error()
}

// PrintUsage печатает справку
func PrintUsage(out iocli.IO) {
	out.Println("LegacyVault Client")
	out.Println()
	out.Println("Usage:")
	out.Println("  legacyvault [OPTIONS] COMMAND [ARGS]")
	out.Println()
	out.Println("Options:")
	out.Println("  --version                    Show version information")
	out.Println("  --server URL                 Server URL (default: http://localhost:8080)")
	out.Println("  --db PATH                    Path to local database (default: legacyvault-client.db)")
	out.Println("  --master-password PASSWORD   Master password (not recommended, use env var or file)")
	out.Println("  --master-password-file PATH  Path to file containing master password")
	out.Println()
	out.Println("Master Password Priority (highest to lowest):")
	out.Println("  1. " + EnvMasterPassword + " environment variable")
	out.Println("  2. --master-password-file (file path)")
	out.Println("  3. --master-password (command line)")
	out.Println("  4. Interactive prompt (fallback)")
	out.Println()
	out.Println("The vault passphrase is read from " + EnvPassphrase + " or prompted.")
	out.Println()
	out.Println("Commands:")
	out.Println("  register                              Register new user")
	out.Println("  login                                 Login to server")
	out.Println("  logout                                Logout and delete local session")
	out.Println("  status                                Show authentication status")
	out.Println("  setup                                 Create master key protected by a vault passphrase")
	out.Println()
	out.Println("  vault create -name NAME [flags]       Create vault and print its unlock tokens")
	out.Println("  vault list                            List owned and inherited vaults")
	out.Println("  vault show ID                         Show vault details")
	out.Println("  vault open ID                         Open own vault without a token")
	out.Println("  vault unlock [-anonymous] [TOKEN]     Unlock vault with a token")
	out.Println("  vault issue-token [flags] ID          Issue an additional unlock token")
	out.Println("  vault tokens ID                       List token metadata")
	out.Println("  vault revoke ID TOKEN_ID              Revoke a token")
	out.Println("  vault logs [-limit N] ID              Show access log")
	out.Println("  vault inherit [-event EVENT] ID       Trigger inheritance manually")
	out.Println("  vault cancel-inheritance ID           Cancel pending inheritance")
	out.Println("  vault archive ID                      Archive vault")
	out.Println()
	out.Println("  letter write -vault ID [-recipient R] Write an encrypted letter")
	out.Println("  letter read ID                        Decrypt and show a letter")
	out.Println("  letter list [-vault ID]               List letters")
	out.Println("  letter delete ID                      Delete a letter")
	out.Println()
	out.Println("Examples:")
	out.Println("  legacyvault register")
	out.Println("  legacyvault login")
	out.Println("  legacyvault setup")
	out.Println("  legacyvault vault create -name 'For my family' -delay-hours 48")
	out.Println("  legacyvault vault unlock -anonymous")
	out.Println("  legacyvault letter write -vault 6f1c... -recipient Emma")
}
