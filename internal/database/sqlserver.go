package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/clinica/intranet-api/internal/config"
)

// DriverName is the database/sql driver registered by go-mssqldb that accepts
// @name parameters.
const DriverName = "sqlserver"

// BuildDSN renders cfg as a sqlserver:// connection URL.
func BuildDSN(cfg config.DatabaseConfig) string {
	query := url.Values{}
	if cfg.Name != "" {
		query.Set("database", cfg.Name)
	}
	query.Set("encrypt", strconv.FormatBool(cfg.Encrypt))
	query.Set("TrustServerCertificate", strconv.FormatBool(cfg.TrustServerCertificate))
	if cfg.ConnectTimeout > 0 {
		query.Set("connection timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	query.Set("app name", "intranet-api")

	host := cfg.Host
	if cfg.Instance == "" && cfg.Port > 0 {
		host = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     host,
		RawQuery: query.Encode(),
	}
	if cfg.Instance != "" {
		u.Path = "/" + cfg.Instance
	}
	// windows auth uses the process identity, so credentials are left out
	if cfg.ResolvedAuth() == config.AuthSQL {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}

	return u.String()
}

// NewDB opens the connection pool described by cfg and verifies it with a ping.
func NewDB(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
