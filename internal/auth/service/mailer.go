package service

import (
	"context"
	"log/slog"
)

// Mailer delivers passwordless credentials. Concrete transports (SMTP, API
// providers) live outside this repo.
type Mailer interface {
	SendMagicLink(ctx context.Context, email, link string) error
	SendCode(ctx context.Context, email, code string) error
}

// LogMailer writes credentials to the log instead of sending them. Use it in
// development only.
type LogMailer struct {
	Logger *slog.Logger
}

var _ Mailer = (*LogMailer)(nil)

func (m *LogMailer) SendMagicLink(ctx context.Context, email, link string) error {
	m.logger().InfoContext(ctx, "magic link issued", "email", email, "link", link)
	return nil
}

func (m *LogMailer) SendCode(ctx context.Context, email, code string) error {
	m.logger().InfoContext(ctx, "login code issued", "email", email, "code", code)
	return nil
}

func (m *LogMailer) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}
