package database

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the Postgres connection settings, loaded from FEE_MANAGER_DB_*
// environment variables.
type Config struct {
	Host     string `default:"localhost"`
	Port     uint16 `default:"5432"`
	Username string `default:"postgres"`
	Password string `default:""`
	DBName   string `envconfig:"DBNAME" default:"fee_manager"`
	MaxConns int32  `envconfig:"MAX_CONNS" default:"10"`
}

// ConfigFromEnv loads the database config from the environment.
func ConfigFromEnv() (Config, error) {
	var c Config
	if err := envconfig.Process("fee_manager_db", &c); err != nil {
		return Config{}, fmt.Errorf("invalid database config: %w", err)
	}
	return c, nil
}

// URL renders the pgx connection string.
func (c Config) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?pool_max_conns=%d",
		c.Username, c.Password, c.Host, c.Port, c.DBName, c.MaxConns)
}
