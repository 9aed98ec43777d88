// Package backup dumps and exports the WMS MySQL/MariaDB database and keeps a
// JSON manifest next to every artifact.
package backup

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// RequiredEnv lists the variables that must be set (directly or through
// .env). MYSQL_PASSWORD is optional and prompted for when missing.
var RequiredEnv = []string{"MYSQL_HOST", "MYSQL_PORT", "MYSQL_USER", "MYSQL_DB"}

// MissingEnvError names the required variables that were empty.
type MissingEnvError struct {
	Vars []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("variables .env manquantes: %s", strings.Join(e.Vars, ", "))
}

// Config locates the database.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// ConfigFromEnv reads MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_DB and
// MYSQL_PASSWORD through getenv.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	var missing []string
	for _, k := range RequiredEnv {
		if strings.TrimSpace(getenv(k)) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return Config{}, &MissingEnvError{Vars: missing}
	}
	port, err := strconv.Atoi(strings.TrimSpace(getenv("MYSQL_PORT")))
	if err != nil || port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("MYSQL_PORT invalide: %q", getenv("MYSQL_PORT"))
	}
	return Config{
		Host:     strings.TrimSpace(getenv("MYSQL_HOST")),
		Port:     port,
		User:     strings.TrimSpace(getenv("MYSQL_USER")),
		Password: getenv("MYSQL_PASSWORD"),
		Database: strings.TrimSpace(getenv("MYSQL_DB")),
	}, nil
}

// Addr is host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DSN is the go-sql-driver/mysql data source name for c.
func (c Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = c.Addr()
	mc.DBName = c.Database
	mc.Timeout = 5 * time.Second
	mc.ReadTimeout = 30 * time.Second
	return mc.FormatDSN()
}
