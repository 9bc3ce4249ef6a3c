package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL       = "http://127.0.0.1:5001/console/api"
	DefaultDBFileName   = ".attachr.db"
	DefaultSpoolDirName = ".attachr-spool"
	DefaultLogLevel     = "info"
	DefaultTransport    = TransportHTTP

	DefaultFileSizeLimitMB = 2
	DefaultBatchCountLimit = 5
	DefaultTotalCountLimit = 10

	TransportHTTP = "http"
	TransportS3   = "s3"

	configFileName           = ".attachr.toml"
	configDirEnvKey          = "ATTACHR_CONFIG_DIR"
	trustProjectConfigEnvKey = "ATTACHR_TRUST_PROJECT_CONFIG"

	allowedExtensionsEnvKey = "ATTACHR_ALLOWED_EXTENSIONS"
	transportEnvKey         = "ATTACHR_TRANSPORT"
)

// DefaultAllowedExtensions is the image set accepted when nothing is configured.
var DefaultAllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "webp"}

// DefaultTransferMethods enables both local and remote attachments.
var DefaultTransferMethods = []string{"local_file", "remote_url"}

// UploadConfig defines local upload policy and fallback limits.
type UploadConfig struct {
	Enabled           bool     `toml:"enabled"`
	AllowedExtensions []string `toml:"allowed_extensions"`
	TransferMethods   []string `toml:"transfer_methods"`
	FileSizeLimitMB   int      `toml:"file_size_limit_mb"`
	BatchCountLimit   int      `toml:"batch_count_limit"`
	TotalCountLimit   int      `toml:"total_count_limit"`
	SoftDelete        bool     `toml:"soft_delete"`
	RAG               bool     `toml:"rag"`
}

// S3Config configures the object storage transport.
type S3Config struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// Config defines runtime configuration for attachr.
type Config struct {
	APIURL                   string       `toml:"api_url"`
	PublicAPIURL             string       `toml:"public_api_url"`
	DBPath                   string       `toml:"db_path"`
	SpoolDir                 string       `toml:"spool_dir"`
	LogLevel                 string       `toml:"log_level"`
	Transport                string       `toml:"transport"`
	Upload                   UploadConfig `toml:"upload"`
	S3                       S3Config     `toml:"s3"`
	TrustedProjectConfigPath string       `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:    DefaultAPIURL,
		LogLevel:  DefaultLogLevel,
		Transport: DefaultTransport,
		Upload: UploadConfig{
			Enabled:           true,
			AllowedExtensions: append([]string(nil), DefaultAllowedExtensions...),
			TransferMethods:   append([]string(nil), DefaultTransferMethods...),
			FileSizeLimitMB:   DefaultFileSizeLimitMB,
			BatchCountLimit:   DefaultBatchCountLimit,
			TotalCountLimit:   DefaultTotalCountLimit,
		},
		S3: S3Config{Region: "auto"},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"public_api_url",
	"db_path",
	"spool_dir",
	"log_level",
	"transport",
	"upload.enabled",
	"upload.allowed_extensions",
	"upload.transfer_methods",
	"upload.file_size_limit_mb",
	"upload.batch_count_limit",
	"upload.total_count_limit",
	"upload.soft_delete",
	"upload.rag",
	"s3.bucket",
	"s3.prefix",
	"s3.region",
	"s3.endpoint",
	"s3.access_key_id",
	"s3.secret_access_key",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "public_api_url":
		return c.PublicAPIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "spool_dir":
		return c.SpoolDir, nil
	case "log_level":
		return c.LogLevel, nil
	case "transport":
		return c.Transport, nil
	case "upload.enabled":
		return strconv.FormatBool(c.Upload.Enabled), nil
	case "upload.allowed_extensions":
		return strings.Join(c.Upload.AllowedExtensions, ","), nil
	case "upload.transfer_methods":
		return strings.Join(c.Upload.TransferMethods, ","), nil
	case "upload.file_size_limit_mb":
		return strconv.Itoa(c.Upload.FileSizeLimitMB), nil
	case "upload.batch_count_limit":
		return strconv.Itoa(c.Upload.BatchCountLimit), nil
	case "upload.total_count_limit":
		return strconv.Itoa(c.Upload.TotalCountLimit), nil
	case "upload.soft_delete":
		return strconv.FormatBool(c.Upload.SoftDelete), nil
	case "upload.rag":
		return strconv.FormatBool(c.Upload.RAG), nil
	case "s3.bucket":
		return c.S3.Bucket, nil
	case "s3.prefix":
		return c.S3.Prefix, nil
	case "s3.region":
		return c.S3.Region, nil
	case "s3.endpoint":
		return c.S3.Endpoint, nil
	case "s3.access_key_id":
		return c.S3.AccessKeyID, nil
	case "s3.secret_access_key":
		if c.S3.SecretAccessKey == "" {
			return "", nil
		}
		return "********", nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
		if cfg.SpoolDir == "" {
			cfg.SpoolDir = filepath.Join(cwd, DefaultSpoolDirName)
		}
	}

	if apiURL := os.Getenv("ATTACHR_API_URL"); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if publicURL := os.Getenv("ATTACHR_PUBLIC_API_URL"); publicURL != "" {
		cfg.PublicAPIURL = publicURL
	}
	if dbPath := os.Getenv("ATTACHR_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if spoolDir := os.Getenv("ATTACHR_SPOOL_DIR"); spoolDir != "" {
		cfg.SpoolDir = spoolDir
	}
	if raw := strings.TrimSpace(os.Getenv(allowedExtensionsEnvKey)); raw != "" {
		cfg.Upload.AllowedExtensions = splitCSV(raw)
	}
	if raw := strings.TrimSpace(os.Getenv(transportEnvKey)); raw != "" {
		cfg.Transport = raw
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "upload.file_size_limit_mb", "upload.batch_count_limit", "upload.total_count_limit":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "upload.enabled", "upload.soft_delete", "upload.rag":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "upload.allowed_extensions", "upload.transfer_methods":
		return splitCSV(value), nil
	case "transport":
		if value != TransportHTTP && value != TransportS3 {
			return nil, fmt.Errorf("transport must be %q or %q", TransportHTTP, TransportS3)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalize() error {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Upload.FileSizeLimitMB <= 0 {
		c.Upload.FileSizeLimitMB = DefaultFileSizeLimitMB
	}
	if c.Upload.BatchCountLimit <= 0 {
		c.Upload.BatchCountLimit = DefaultBatchCountLimit
	}
	if c.Upload.TotalCountLimit <= 0 {
		c.Upload.TotalCountLimit = DefaultTotalCountLimit
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	}
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	switch c.Transport {
	case "":
		c.Transport = DefaultTransport
	case TransportHTTP:
	case TransportS3:
		if strings.TrimSpace(c.S3.Bucket) == "" {
			return fmt.Errorf("s3.bucket is required when transport is %q", TransportS3)
		}
	default:
		return fmt.Errorf("unknown transport: %s", c.Transport)
	}
	return nil
}
