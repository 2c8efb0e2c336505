// Package email sends transactional mail over SMTP and renders the
// welcome and notification templates.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/Alijeyrad/simward_backend/config"
)

type Client struct {
	cfg Config
}

func NewFromCentral(cfg config.EmailConfig) (*Client, error) {
	return New(FromCentralConfig(cfg))
}

func New(cfg Config) (*Client, error) {
	if cfg.Enabled && cfg.Host == "" {
		return nil, errors.New("email: smtp host is required when enabled")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	return &Client{cfg: cfg}, nil
}

// Send delivers m. gomail has no context support, so the dial runs in a
// goroutine and Send stops waiting at the earlier of ctx's deadline and
// the configured timeout.
func (c *Client) Send(ctx context.Context, m Message) error {
	if !c.cfg.Enabled {
		return ErrDisabled
	}
	msg, err := compose(c.cfg.From, m)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.dialer().DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return &SendError{Host: c.cfg.Host, Err: err}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) dialer() *gomail.Dialer {
	d := gomail.NewDialer(c.cfg.Host, c.cfg.Port, c.cfg.Username, c.cfg.Password)
	d.SSL = c.cfg.ImplicitTLS
	d.TLSConfig = &tls.Config{ServerName: c.cfg.Host, MinVersion: tls.VersionTLS12}
	return d
}

func compose(from string, m Message) (*gomail.Message, error) {
	from = strings.TrimSpace(from)
	subject := strings.TrimSpace(m.Subject)
	text, html := strings.TrimSpace(m.TextBody) != "", strings.TrimSpace(m.HTMLBody) != ""
	switch {
	case from == "":
		return nil, invalid("from address is empty")
	case !m.hasRecipient():
		return nil, invalid("no recipients")
	case subject == "":
		return nil, invalid("subject is empty")
	case !text && !html:
		return nil, invalid("body is empty")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("Subject", subject)
	for header, addrs := range map[string][]string{"To": m.To, "Cc": m.CC, "Bcc": m.BCC} {
		if addrs = trimAll(addrs); len(addrs) > 0 {
			msg.SetHeader(header, addrs...)
		}
	}
	for k, v := range m.Headers {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			msg.SetHeader(k, v)
		}
	}

	if text {
		msg.SetBody("text/plain", m.TextBody)
		if html {
			msg.AddAlternative("text/html", m.HTMLBody)
		}
	} else {
		msg.SetBody("text/html", m.HTMLBody)
	}
	return msg, nil
}
