package inheritance

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTPConfig - параметры почтового сервера
type SMTPConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Pass     string `json:"pass"`
	From     string `json:"from"`
	Security string `json:"security"` // starttls (по умолчанию), ssl, none
}

// SMTPNotifier отправляет уведомления письмами, по одному на адрес
type SMTPNotifier struct {
	logger *slog.Logger
	send   func(to string, msg []byte) error
	cfg    SMTPConfig
}

// NewSMTPNotifier creates SMTP notifier.
// Если host или from не заданы, возвращает LogNotifier.
func NewSMTPNotifier(cfg SMTPConfig, logger *slog.Logger) Notifier {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.From = strings.TrimSpace(cfg.From)
	cfg.Security = strings.ToLower(strings.TrimSpace(cfg.Security))
	if cfg.Security == "" {
		cfg.Security = "starttls"
	}
	if cfg.Host == "" || cfg.From == "" {
		logger.Info("SMTP notifier disabled: host or from missing")
		return NewLogNotifier(logger)
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}

	logger.Info("SMTP notifier enabled",
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("security", cfg.Security),
		slog.String("user", maskForLog(cfg.User)),
	)

	n := &SMTPNotifier{cfg: cfg, logger: logger}
	n.send = n.deliver
	return n
}

// Notify sends one message per recipient; failures are joined
func (n *SMTPNotifier) Notify(ctx context.Context, notification Notification) error {
	body := fmt.Sprintf("%s\n\nVault: %s\nTime: %s UTC\n",
		notification.Message,
		notification.VaultName,
		notification.At.UTC().Format(time.RFC3339),
	)

	var errs []error
	for _, to := range notification.Recipients {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		msg := message(n.cfg.From, to, notification.Subject(), body)
		if err := n.send(to, msg); err != nil {
			n.logger.WarnContext(ctx, "Failed to send notification",
				slog.String("vault_id", notification.VaultID),
				slog.String("to", maskForLog(to)),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("send to %s: %w", maskForLog(to), err))
		}
	}
	return errors.Join(errs...)
}

func (n *SMTPNotifier) deliver(to string, msg []byte) error {
	switch n.cfg.Security {
	case "ssl", "smtps":
		return n.sendSSL(to, msg)
	case "none":
		return smtp.SendMail(n.addr(), nil, n.cfg.From, []string{to}, msg)
	default:
		return n.sendStartTLS(to, msg)
	}
}

func (n *SMTPNotifier) sendStartTLS(to string, msg []byte) error {
	client, err := smtp.Dial(n.addr())
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
			return err
		}
	}

	return n.transmit(client, to, msg)
}

func (n *SMTPNotifier) sendSSL(to string, msg []byte) error {
	conn, err := tls.Dial("tcp", n.addr(), &tls.Config{ServerName: n.cfg.Host})
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	return n.transmit(client, to, msg)
}

func (n *SMTPNotifier) transmit(client *smtp.Client, to string, msg []byte) error {
	if n.cfg.User != "" && n.cfg.Pass != "" {
		auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Pass, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(n.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (n *SMTPNotifier) addr() string {
	return net.JoinHostPort(n.cfg.Host, n.cfg.Port)
}

func message(from, to, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

// maskForLog скрывает адрес/логин в логах
func maskForLog(s string) string {
	if s == "" {
		return "(none)"
	}
	if len(s) <= 2 {
		return "***"
	}
	return s[:1] + "***" + s[len(s)-1:]
}
