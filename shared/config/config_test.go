package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeConfigs(t *testing.T, public, private string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "public.yaml"), []byte(public), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "private.yaml"), []byte(private), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestMustLoad_Defaults(t *testing.T) {
	dir := writeConfigs(t, "log_level: debug\n", "jwt_key: 'k'\n")

	cfg := MustLoad(dir)

	assert.Equal(t, ":8080", cfg.Public.ListenAddr)
	assert.Equal(t, 24*time.Hour, cfg.Public.JwtTTL)
	assert.Equal(t, 2000, cfg.Public.MaxCardTextLen)
	assert.Equal(t, "0 4 * * *", cfg.Public.SweepSchedule)
	assert.Equal(t, "debug", cfg.Public.LogLevel)
	assert.Equal(t, "k", cfg.JwtKey())
}

func TestMustLoad_MissingJwtKeyPanics(t *testing.T) {
	dir := writeConfigs(t, "listen_addr: ':9090'\n", "# no key\n")

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic due to missing jwt_key, got none")
		}
	}()

	_ = MustLoad(dir)
}

func TestMustLoad_MissingFilePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic for missing config folder, got none")
		}
	}()

	_ = MustLoad(t.TempDir())
}
