package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"deckstamp/internal/config"
)

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msgs...)
	return nil
}

func testConfig() config.SMTPConfig {
	return config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		User:     "bot@example.com",
		Password: "secret",
		To:       "ops@example.com, lead@example.com",
	}
}

func TestNewReturnsNoopWhenUnconfigured(t *testing.T) {
	cases := map[string]func(*config.SMTPConfig){
		"no user":      func(c *config.SMTPConfig) { c.User = "" },
		"no password":  func(c *config.SMTPConfig) { c.Password = "" },
		"no recipient": func(c *config.SMTPConfig) { c.To = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			n, err := New(cfg, nil)
			require.NoError(t, err)
			assert.IsType(t, Noop{}, n)
			assert.NoError(t, n.Notify(context.Background(), Notice{Filename: "a.pptx"}))
		})
	}
}

func TestNewBuildsSMTPNotifier(t *testing.T) {
	n, err := New(testConfig(), nil)
	require.NoError(t, err)
	assert.IsType(t, &smtpNotifier{}, n)
}

func TestNotifySendsMessage(t *testing.T) {
	fs := &fakeSender{}
	n := newSMTP(testConfig(), fs, nil)

	err := n.Notify(context.Background(), Notice{Filename: "Quarterly.pptx", ObjectID: "originals/abc_Quarterly.pptx"})
	require.NoError(t, err)
	require.Len(t, fs.sent, 1)

	var buf bytes.Buffer
	_, err = fs.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: "+subject)
	assert.Contains(t, raw, "bot@example.com")
	assert.Contains(t, raw, "ops@example.com")
	assert.Contains(t, raw, "lead@example.com")
	assert.Contains(t, raw, "Quarterly.pptx")
}

func TestNotifyWrapsSendError(t *testing.T) {
	boom := errors.New("connection refused")
	n := newSMTP(testConfig(), &fakeSender{err: boom}, nil)

	err := n.Notify(context.Background(), Notice{Filename: "a.pptx"})
	assert.ErrorIs(t, err, boom)
}

func TestNotifyThrottles(t *testing.T) {
	cfg := testConfig()
	cfg.MinInterval = time.Hour
	fs := &fakeSender{}
	n := newSMTP(cfg, fs, nil)

	require.NoError(t, n.Notify(context.Background(), Notice{Filename: "a.pptx"}))
	assert.ErrorIs(t, n.Notify(context.Background(), Notice{Filename: "b.pptx"}), ErrThrottled)
	assert.Len(t, fs.sent, 1)
}

func TestFromFallsBackToUser(t *testing.T) {
	n := newSMTP(testConfig(), &fakeSender{}, nil)
	assert.Equal(t, "bot@example.com", n.from)

	cfg := testConfig()
	cfg.From = "noreply@example.com"
	n = newSMTP(cfg, &fakeSender{}, nil)
	assert.Equal(t, "noreply@example.com", n.from)
	assert.Equal(t, []string{"ops@example.com", "lead@example.com"}, n.to)
}

func TestBody(t *testing.T) {
	body := Body(Notice{Filename: "deck.pptx", ObjectID: "originals/x_deck.pptx"})
	assert.Equal(t, "A new PowerPoint was uploaded.\n\nFile: deck.pptx\nArchive object: originals/x_deck.pptx\n(Uploaded original only)\n", body)

	body = Body(Notice{Filename: "deck.pptx", ObjectID: "id", Link: "https://minio/x"})
	assert.Contains(t, body, "Download (7 days): https://minio/x\n")
}
