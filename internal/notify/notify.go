// Package notify emails an operator when a new deck has been archived.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"deckstamp/internal/config"
)

const subject = "New PowerPoint upload received"

// ErrThrottled is returned when a notice arrives inside the minimum interval.
var ErrThrottled = errors.New("notification throttled")

// Notice describes one archived upload.
type Notice struct {
	Filename string
	ObjectID string
	// Link is an optional time-limited download URL for the archived original.
	Link string
}

// Notifier delivers upload notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// sender is the part of *mail.Client the notifier uses.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// New returns an SMTP notifier, or a no-op one when SMTP credentials or a
// recipient are missing.
func New(cfg config.SMTPConfig, logger *zap.Logger) (Notifier, error) {
	if cfg.User == "" || cfg.Password == "" || cfg.To == "" {
		return Noop{}, nil
	}
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return newSMTP(cfg, client, logger), nil
}

type smtpNotifier struct {
	from    string
	to      []string
	client  sender
	limiter *rate.Limiter
	logger  *zap.Logger
}

func newSMTP(cfg config.SMTPConfig, client sender, logger *zap.Logger) *smtpNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	var to []string
	for _, addr := range strings.Split(cfg.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	n := &smtpNotifier{from: from, to: to, client: client, logger: logger}
	if cfg.MinInterval > 0 {
		n.limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	return n
}

func (n *smtpNotifier) Notify(ctx context.Context, notice Notice) error {
	if n.limiter != nil && !n.limiter.Allow() {
		return ErrThrottled
	}
	msg, err := n.message(notice)
	if err != nil {
		return err
	}
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	n.logger.Info("notification_sent",
		zap.String("filename", notice.Filename),
		zap.String("object_id", notice.ObjectID),
	)
	return nil
}

func (n *smtpNotifier) message(notice Notice) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(n.to...); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, Body(notice))
	return msg, nil
}

// Body renders the plain-text notification.
func Body(notice Notice) string {
	var b strings.Builder
	b.WriteString("A new PowerPoint was uploaded.\n\n")
	fmt.Fprintf(&b, "File: %s\n", notice.Filename)
	fmt.Fprintf(&b, "Archive object: %s\n", notice.ObjectID)
	if notice.Link != "" {
		fmt.Fprintf(&b, "Download (7 days): %s\n", notice.Link)
	}
	b.WriteString("(Uploaded original only)\n")
	return b.String()
}

// Noop discards notices.
type Noop struct{}

func (Noop) Notify(context.Context, Notice) error { return nil }
