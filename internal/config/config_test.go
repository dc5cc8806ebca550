package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:5001", cfg.Server.Addr())
	assert.Equal(t, 1433, cfg.Database.Port)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Second, cfg.Database.ConnMaxIdleTime)
	assert.Equal(t, 60*time.Second, cfg.Cache.StatisticsTTL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
	assert.Empty(t, cfg.Auth.APIToken)
}

func TestLoadConfigEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "5002")
	t.Setenv("API_TOKEN", "s3cret")
	t.Setenv("SQLSERVER_HOST", "db.local")
	t.Setenv("SQLSERVER_INSTANCE", "SQLEXPRESS")
	t.Setenv("SQLSERVER_USER", "sa")
	t.Setenv("SQLSERVER_PASSWORD", "pw")
	t.Setenv("SQLSERVER_ENCRYPT", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 5002, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Auth.APIToken)
	assert.Equal(t, "db.local", cfg.Database.Host)
	assert.Equal(t, "SQLEXPRESS", cfg.Database.Instance)
	assert.True(t, cfg.Database.Encrypt)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 6000
database:
  host: sql01
  user: app
  password: pw
  max_open_conns: 4
cache:
  statistics_ttl: 5s
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, "sql01", cfg.Database.Host)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.Cache.StatisticsTTL)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolvedAuth(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{"explicit windows", DatabaseConfig{Auth: "Windows"}, AuthWindows},
		{"explicit sql", DatabaseConfig{Auth: "sql", User: `DOM\user`}, AuthSQL},
		{"domain user without password", DatabaseConfig{User: `CLINICA\svc`}, AuthWindows},
		{"domain user with password", DatabaseConfig{User: `CLINICA\svc`, Password: "x"}, AuthSQL},
		{"plain user", DatabaseConfig{User: "sa"}, AuthSQL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ResolvedAuth())
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server:   ServerConfig{Port: 5001},
		Database: DatabaseConfig{Host: "db", Port: 1433, User: "sa", MaxOpenConns: 10},
	}
	assert.NoError(t, valid.Validate())

	noHost := valid
	noHost.Database.Host = ""
	assert.Error(t, noHost.Validate())

	badPort := valid
	badPort.Server.Port = 70000
	assert.Error(t, badPort.Validate())

	noUser := valid
	noUser.Database.User = ""
	assert.Error(t, noUser.Validate())

	windows := noUser
	windows.Database.Auth = AuthWindows
	assert.NoError(t, windows.Validate())
}
