package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Transport != TransportHTTP {
		t.Fatalf("expected http transport, got %q", cfg.Transport)
	}
	if !cfg.Upload.Enabled {
		t.Fatal("expected uploads enabled by default")
	}
	if cfg.Upload.FileSizeLimitMB != DefaultFileSizeLimitMB {
		t.Fatalf("expected size limit %d, got %d", DefaultFileSizeLimitMB, cfg.Upload.FileSizeLimitMB)
	}
	if cfg.Upload.BatchCountLimit != DefaultBatchCountLimit {
		t.Fatalf("expected batch limit %d, got %d", DefaultBatchCountLimit, cfg.Upload.BatchCountLimit)
	}
	if cfg.Upload.TotalCountLimit != DefaultTotalCountLimit {
		t.Fatalf("expected total limit %d, got %d", DefaultTotalCountLimit, cfg.Upload.TotalCountLimit)
	}
	if strings.Join(cfg.Upload.AllowedExtensions, ",") != "png,jpg,jpeg,gif,webp" {
		t.Fatalf("unexpected default extensions %v", cfg.Upload.AllowedExtensions)
	}
}

func TestDefaultDoesNotAliasPackageSlices(t *testing.T) {
	cfg := Default()
	cfg.Upload.AllowedExtensions[0] = "exe"
	if DefaultAllowedExtensions[0] != "png" {
		t.Fatal("Default must copy DefaultAllowedExtensions")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".attachr.toml")
	if err := os.WriteFile(path, []byte(`api_url = "http://localhost:9999"
log_level = "warn"

[upload]
allowed_extensions = ["pdf", "md"]
batch_count_limit = 3
soft_delete = true
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Fatalf("expected api_url 'http://localhost:9999', got %q", cfg.APIURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if strings.Join(cfg.Upload.AllowedExtensions, ",") != "pdf,md" {
		t.Fatalf("unexpected allowed extensions %v", cfg.Upload.AllowedExtensions)
	}
	if cfg.Upload.BatchCountLimit != 3 || !cfg.Upload.SoftDelete {
		t.Fatalf("unexpected upload config %#v", cfg.Upload)
	}
	if cfg.Upload.TotalCountLimit != DefaultTotalCountLimit {
		t.Fatalf("expected untouched total limit, got %d", cfg.Upload.TotalCountLimit)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.attachr.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("defaults should be preserved")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range []string{
		"api_url",
		"db_path",
		"log_level",
		"transport",
		"upload.allowed_extensions",
		"upload.total_count_limit",
		"s3.bucket",
	} {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("invalid") {
		t.Fatal("expected 'invalid' to not be allowed")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Config{
		APIURL:   "http://test:1234",
		DBPath:   "/tmp/test.db",
		LogLevel: "warn",
		Upload: UploadConfig{
			Enabled:           true,
			AllowedExtensions: []string{"png", "pdf"},
			FileSizeLimitMB:   7,
		},
		S3: S3Config{Bucket: "media", SecretAccessKey: "hunter2"},
	}

	cases := map[string]string{
		"api_url":                   "http://test:1234",
		"db_path":                   "/tmp/test.db",
		"log_level":                 "warn",
		"upload.enabled":            "true",
		"upload.allowed_extensions": "png,pdf",
		"upload.file_size_limit_mb": "7",
		"s3.bucket":                 "media",
		"s3.secret_access_key":      "********",
	}
	for key, want := range cases {
		got, err := cfg.Get(key)
		if err != nil || got != want {
			t.Fatalf("%s: expected %q, got %q (err: %v)", key, want, got, err)
		}
	}

	if _, err := cfg.Get("nope"); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.toml")
	if err := SetKey(path, "api_url", "http://new"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://new" {
		t.Fatalf("expected 'http://new', got %q", cfg.APIURL)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	if err := os.WriteFile(path, []byte("log_level = \"debug\"\napi_url = \"http://keep\"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetKey(path, "log_level", "error"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("expected 'error', got %q", cfg.LogLevel)
	}
	if cfg.APIURL != "http://keep" {
		t.Fatalf("expected preserved api_url 'http://keep', got %q", cfg.APIURL)
	}
}

func TestSetKeyInvalidKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	if err := SetKey(path, "invalid_key", "value"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetNestedUploadKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.toml")
	if err := SetKey(path, "upload.total_count_limit", "12"); err != nil {
		t.Fatalf("set nested key: %v", err)
	}
	if err := SetKey(path, "upload.allowed_extensions", "png, pdf"); err != nil {
		t.Fatalf("set nested list: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Upload.TotalCountLimit != 12 {
		t.Fatalf("expected total_count_limit 12, got %d", cfg.Upload.TotalCountLimit)
	}
	if strings.Join(cfg.Upload.AllowedExtensions, ",") != "png,pdf" {
		t.Fatalf("unexpected allowed extensions %v", cfg.Upload.AllowedExtensions)
	}
}

func TestSetKeyRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := SetKey(path, "upload.batch_count_limit", "0"); err == nil {
		t.Fatal("expected non-positive limit to be rejected")
	}
	if err := SetKey(path, "upload.rag", "maybe"); err == nil {
		t.Fatal("expected non-bool to be rejected")
	}
	if err := SetKey(path, "transport", "ftp"); err == nil {
		t.Fatal("expected unknown transport to be rejected")
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ATTACHR_CONFIG_DIR", dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, ".attachr.toml") {
		t.Fatalf("unexpected global path: %s", globalPath)
	}

	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	if projectPath != filepath.Join(dir, ".attachr.toml") {
		t.Fatalf("unexpected project path: %s", projectPath)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ATTACHR_API_URL", "ATTACHR_PUBLIC_API_URL", "ATTACHR_DB", "ATTACHR_SPOOL_DIR",
		"ATTACHR_ALLOWED_EXTENSIONS", "ATTACHR_TRANSPORT", "ATTACHR_TRUST_PROJECT_CONFIG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDirOverride(t *testing.T) {
	clearEnv(t)
	configDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(configDir, ".attachr.toml"), []byte("api_url = \"http://127.0.0.1:9001\"\n"), 0644); err != nil {
		t.Fatalf("write override config: %v", err)
	}

	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, ".attachr.toml"), []byte("api_url = \"http://workspace\"\n"), 0644); err != nil {
		t.Fatalf("write workspace config: %v", err)
	}
	chdir(t, workspace)

	t.Setenv("ATTACHR_CONFIG_DIR", configDir)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9001" {
		t.Fatalf("expected config-dir api_url override, got %q", cfg.APIURL)
	}
	if cfg.DBPath != filepath.Join(workspace, DefaultDBFileName) {
		t.Fatalf("expected default workspace db path, got %q", cfg.DBPath)
	}
	if cfg.SpoolDir != filepath.Join(workspace, DefaultSpoolDirName) {
		t.Fatalf("expected default workspace spool dir, got %q", cfg.SpoolDir)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ATTACHR_CONFIG_DIR", t.TempDir())
	t.Setenv("ATTACHR_API_URL", "http://example.com:8080")
	t.Setenv("ATTACHR_DB", "/tmp/override.db")
	t.Setenv("ATTACHR_ALLOWED_EXTENSIONS", "pdf, txt")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://example.com:8080" {
		t.Fatalf("expected env override for API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "/tmp/override.db" {
		t.Fatalf("expected env override for DB path, got %q", cfg.DBPath)
	}
	if strings.Join(cfg.Upload.AllowedExtensions, ",") != "pdf,txt" {
		t.Fatalf("expected env override for extensions, got %v", cfg.Upload.AllowedExtensions)
	}
}

func TestLoadNormalizesNonPositiveLimits(t *testing.T) {
	clearEnv(t)
	configDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(configDir, ".attachr.toml"), []byte(`log_level = ""

[upload]
file_size_limit_mb = 0
batch_count_limit = -3
total_count_limit = 0
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ATTACHR_CONFIG_DIR", configDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Upload.FileSizeLimitMB != DefaultFileSizeLimitMB ||
		cfg.Upload.BatchCountLimit != DefaultBatchCountLimit ||
		cfg.Upload.TotalCountLimit != DefaultTotalCountLimit {
		t.Fatalf("expected default limits, got %#v", cfg.Upload)
	}
}

func TestLoadRequiresBucketForS3(t *testing.T) {
	clearEnv(t)
	t.Setenv("ATTACHR_CONFIG_DIR", t.TempDir())
	t.Setenv("ATTACHR_TRANSPORT", "s3")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing bucket error")
	}
}

func TestLoadIgnoresProjectConfigByDefault(t *testing.T) {
	clearEnv(t)
	homeDir := t.TempDir()
	workspace := t.TempDir()
	t.Setenv("ATTACHR_CONFIG_DIR", "")

	if err := os.WriteFile(filepath.Join(homeDir, ".attachr.toml"), []byte("api_url = \"http://home\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, ".attachr.toml"), []byte("api_url = \"http://project\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
	chdir(t, workspace)
	t.Setenv("HOME", homeDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://home" {
		t.Fatalf("expected global api_url, got %q", cfg.APIURL)
	}
	if cfg.TrustedProjectConfigPath != "" {
		t.Fatalf("expected no trusted project config path, got %q", cfg.TrustedProjectConfigPath)
	}
}

func TestLoadAppliesProjectConfigWhenTrusted(t *testing.T) {
	clearEnv(t)
	homeDir := t.TempDir()
	workspace := t.TempDir()
	t.Setenv("ATTACHR_CONFIG_DIR", "")

	if err := os.WriteFile(filepath.Join(homeDir, ".attachr.toml"), []byte("api_url = \"http://home\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, ".attachr.toml"), []byte("api_url = \"http://project\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
	chdir(t, workspace)
	t.Setenv("HOME", homeDir)
	t.Setenv("ATTACHR_TRUST_PROJECT_CONFIG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://project" {
		t.Fatalf("expected trusted project api_url, got %q", cfg.APIURL)
	}
	if cfg.TrustedProjectConfigPath != filepath.Join(workspace, ".attachr.toml") {
		t.Fatalf("unexpected trusted project path %q", cfg.TrustedProjectConfigPath)
	}
}
