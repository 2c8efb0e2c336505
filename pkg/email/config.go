package email

import (
	"time"

	"github.com/Alijeyrad/simward_backend/config"
)

const defaultSMTPTimeout = 30 * time.Second

type Config struct {
	Enabled bool
	From    string

	Host     string
	Port     int
	Username string
	Password string
	// ImplicitTLS dials with TLS from the start (port 465). Otherwise
	// gomail upgrades with STARTTLS when the server offers it.
	ImplicitTLS bool
	Timeout     time.Duration
}

func FromCentralConfig(c config.EmailConfig) Config {
	timeout := time.Duration(c.SMTP.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	return Config{
		Enabled:     c.Enabled,
		From:        c.From,
		Host:        c.SMTP.Host,
		Port:        c.SMTP.Port,
		Username:    c.SMTP.Username,
		Password:    c.SMTP.Password,
		ImplicitTLS: c.SMTP.UseTLS,
		Timeout:     timeout,
	}
}
