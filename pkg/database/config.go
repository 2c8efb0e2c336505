package database

import (
	"fmt"
	"time"

	"github.com/Alijeyrad/simward_backend/config"
)

const defaultConnLifetime = 5 * time.Minute

// Config describes one Postgres database and its pool.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Maintenance returns the same server settings pointed at the built-in
// postgres database, for creating the others.
func (c Config) Maintenance() Config {
	return Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   "postgres",
		SSLMode:  c.SSLMode,
	}
}

func FromCentralConfig(c config.DatabaseConfig) Config {
	lifetime := time.Duration(c.Pool.ConnMaxLifetimeMin) * time.Minute
	if lifetime <= 0 {
		lifetime = defaultConnLifetime
	}
	return Config{
		Host:         c.Host,
		Port:         c.Port,
		User:         c.User,
		Password:     c.Password,
		DBName:       c.DBName,
		SSLMode:      c.SSLMode,
		MaxOpenConns: c.Pool.MaxOpenConns,
		MaxIdleConns: c.Pool.MaxIdleConns,
		ConnLifetime: lifetime,
	}
}

// NewDSN is shorthand for FromCentralConfig(c).DSN().
func NewDSN(c config.DatabaseConfig) string {
	return FromCentralConfig(c).DSN()
}
