package config

import (
	"os"
	"path/filepath"
	"testing"
)

// unsetEnv clears key for the test and restores its previous value afterwards,
// so values loaded from a .env file do not leak into other tests.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_QuotedDotEnvValues(t *testing.T) {
	dir := t.TempDir()
	content := "CORS_ORIGINS='https://a.example,https://b.example'\n" +
		`API_ENV='staging "blue"'` + "\n" +
		`HTTP_ADDR="127.0.0.1:7070"` + "\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DATA_PATH", dir)
	for _, key := range []string{"CORS_ORIGINS", "API_ENV", "HTTP_ADDR"} {
		unsetEnv(t, key)
	}
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	origins := cfg.HTTP.CORSOrigins
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Errorf("Expected both quoted origins, got %v", origins)
	}
	if expected := `staging "blue"`; cfg.HTTP.Env != expected {
		t.Errorf("Expected %s, got %s", expected, cfg.HTTP.Env)
	}
	if cfg.HTTP.Addr != "127.0.0.1:7070" {
		t.Errorf("Expected the double-quoted address, got %s", cfg.HTTP.Addr)
	}
}

func TestLoad_EnvironmentBeatsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HTTP_ADDR=':1111'\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATA_PATH", dir)
	t.Setenv("HTTP_ADDR", ":2222")
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":2222" {
		t.Errorf("Expected the process environment to win, got %s", cfg.HTTP.Addr)
	}
	if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
		t.Errorf("Load should not create a logs directory under DATA_PATH")
	}
}
