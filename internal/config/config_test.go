package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeConfig(t, `
server:
  port: "9090"
content:
  questions_path: content/q.json
redis:
  addr: localhost:6379
  ttl: 30m
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "content/q.json", cfg.Content.QuestionsPath)
	assert.Equal(t, "data/animals.json", cfg.Content.AnimalsPath)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Minute, TTLDuration(cfg.Redis.TTL, time.Hour))
	assert.Equal(t, 8, cfg.Bot.Workers)
}

func TestLoadAppliesEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TELEGRAM_API_TOKEN", "123:abc")
	t.Setenv("GUARDIANSHIP_LINK", "https://example.org/guardianship")
	t.Setenv("BOT_WORKERS", "3")
	t.Setenv("ALLOWED_ORIGINS", "https://zoo.example,https://quiz.example")

	cfg, err := Load(writeConfig(t, "telegram:\n  token: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, "https://example.org/guardianship", cfg.Bot.GuardianshipLink)
	assert.Equal(t, 3, cfg.Bot.Workers)
	assert.Equal(t, []string{"https://zoo.example", "https://quiz.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.TransportsEnabled())
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GUARDIANSHIP_LINK=https://zoo.example/care\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("GUARDIANSHIP_LINK") })

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://zoo.example/care", cfg.Bot.GuardianshipLink)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load(writeConfig(t, "content:\n  source: postgres\n"))
	assert.ErrorContains(t, err, "postgres.url")

	_, err = Load(writeConfig(t, "request_log:\n  backend: s3\n"))
	assert.ErrorContains(t, err, "unknown backend")

	_, err = Load(writeConfig(t, "server: [\n"))
	assert.Error(t, err)
}

func TestTTLDuration(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("bogus", time.Minute))
	assert.Equal(t, 2*time.Hour, TTLDuration("2h", time.Minute))
}
