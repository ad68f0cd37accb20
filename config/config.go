// Package config holds the settings for one metadata generation run.
//
// Values come from cobra flags bound into viper, SCHEMAMETA_* environment
// variables, an optional YAML file and an optional .env file, in that order of
// precedence. The resulting Config is passed by value to every stage.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "SCHEMAMETA"

	DefaultChannel   = "sqlite"
	DefaultOutputDir = "output"
	DefaultRegion    = "us-west-2"
	DefaultMaxTokens = 20000
	// DefaultMaxDDLBytes keeps a schema well inside a 200k-token context window.
	DefaultMaxDDLBytes = 500000

	ProviderBedrock   = "bedrock"
	ProviderAnthropic = "anthropic"
	ProviderHTTP      = "http"

	DefaultBedrockModelID   = "anthropic.claude-3-sonnet-20240229-v1:0"
	DefaultAnthropicModelID = "claude-3-sonnet-20240229"

	SizePolicyReject   = "reject"
	SizePolicyTruncate = "truncate"

	ParsePolicyAbort = "abort"
	ParsePolicySkip  = "skip"
)

// Viper keys. Flag names use the same spelling so BindPFlags lines them up.
const (
	KeyDBName           = "db_name"
	KeyDDLFile          = "ddl_file"
	KeyChannel          = "channel"
	KeyOutputDir        = "output_dir"
	KeyProvider         = "provider"
	KeyModelID          = "model_id"
	KeyRegion           = "region"
	KeyEndpoint         = "endpoint"
	KeyAPIToken         = "api_token"
	KeyAnthropicAPIKey  = "anthropic_api_key"
	KeyAnthropicBaseURL = "anthropic_base_url"
	KeyMaxTokens        = "max_tokens"
	KeyAnthropicVersion = "anthropic_version"
	KeyMaxDDLBytes      = "max_ddl_bytes"
	KeyDDLSizePolicy    = "ddl_size_policy"
	KeyOnParseError     = "on_parse_error"
	KeyTimeout          = "timeout"
	KeyHistoryDB        = "history_db"
	KeyLogLevel         = "log_level"
)

var (
	ErrMissingDBName  = errors.New("db_name is required")
	ErrMissingDDLFile = errors.New("ddl_file is required")
)

type Config struct {
	DatabaseName string
	DDLPath      string
	Channel      string
	OutputDir    string

	Provider         string
	ModelID          string
	Region           string
	Endpoint         string
	APIToken         string
	AnthropicAPIKey  string
	AnthropicBaseURL string
	MaxTokens        int
	AnthropicVersion string
	Timeout          time.Duration

	MaxDDLBytes   int
	DDLSizePolicy string
	OnParseError  string

	HistoryDB string
	LogLevel  string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyChannel, DefaultChannel)
	v.SetDefault(KeyOutputDir, DefaultOutputDir)
	v.SetDefault(KeyProvider, ProviderBedrock)
	v.SetDefault(KeyRegion, DefaultRegion)
	v.SetDefault(KeyMaxTokens, DefaultMaxTokens)
	v.SetDefault(KeyAnthropicVersion, "")
	v.SetDefault(KeyMaxDDLBytes, DefaultMaxDDLBytes)
	v.SetDefault(KeyDDLSizePolicy, SizePolicyReject)
	v.SetDefault(KeyOnParseError, ParsePolicyAbort)
	v.SetDefault(KeyTimeout, time.Duration(0))
	v.SetDefault(KeyLogLevel, "info")
}

// BindEnv wires SCHEMAMETA_* variables into v. The Anthropic key also answers
// to the conventional ANTHROPIC_API_KEY.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyAnthropicAPIKey, EnvPrefix+"_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return fmt.Errorf("bind %s: %w", KeyAnthropicAPIKey, err)
	}
	return nil
}

// ReadFile merges a YAML config file into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	return nil
}

// LoadEnvFile exports the variables in a .env file into the process
// environment. Variables that are already set win. A missing file is ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		DatabaseName:     strings.TrimSpace(v.GetString(KeyDBName)),
		DDLPath:          strings.TrimSpace(v.GetString(KeyDDLFile)),
		Channel:          v.GetString(KeyChannel),
		OutputDir:        v.GetString(KeyOutputDir),
		Provider:         strings.ToLower(v.GetString(KeyProvider)),
		ModelID:          v.GetString(KeyModelID),
		Region:           v.GetString(KeyRegion),
		Endpoint:         v.GetString(KeyEndpoint),
		APIToken:         v.GetString(KeyAPIToken),
		AnthropicAPIKey:  v.GetString(KeyAnthropicAPIKey),
		AnthropicBaseURL: v.GetString(KeyAnthropicBaseURL),
		MaxTokens:        v.GetInt(KeyMaxTokens),
		AnthropicVersion: v.GetString(KeyAnthropicVersion),
		Timeout:          v.GetDuration(KeyTimeout),
		MaxDDLBytes:      v.GetInt(KeyMaxDDLBytes),
		DDLSizePolicy:    strings.ToLower(v.GetString(KeyDDLSizePolicy)),
		OnParseError:     strings.ToLower(v.GetString(KeyOnParseError)),
		HistoryDB:        v.GetString(KeyHistoryDB),
		LogLevel:         v.GetString(KeyLogLevel),
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID(cfg.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultModelID returns the model used by provider when none is configured.
// The http provider has no default; the gateway decides.
func DefaultModelID(provider string) string {
	switch provider {
	case ProviderBedrock:
		return DefaultBedrockModelID
	case ProviderAnthropic:
		return DefaultAnthropicModelID
	}
	return ""
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.DatabaseName == "" {
		return ErrMissingDBName
	}
	if c.DDLPath == "" {
		return ErrMissingDDLFile
	}
	if c.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	switch c.Provider {
	case ProviderBedrock:
		if c.Region == "" {
			return errors.New("region is required for the bedrock provider")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return errors.New("anthropic provider needs ANTHROPIC_API_KEY")
		}
	case ProviderHTTP:
		if c.Endpoint == "" {
			return errors.New("endpoint is required for the http provider")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxDDLBytes < 0 {
		return fmt.Errorf("max_ddl_bytes must not be negative, got %d", c.MaxDDLBytes)
	}
	switch c.DDLSizePolicy {
	case SizePolicyReject, SizePolicyTruncate:
	default:
		return fmt.Errorf("unknown ddl_size_policy %q", c.DDLSizePolicy)
	}
	switch c.OnParseError {
	case ParsePolicyAbort, ParsePolicySkip:
	default:
		return fmt.Errorf("unknown on_parse_error policy %q", c.OnParseError)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}
