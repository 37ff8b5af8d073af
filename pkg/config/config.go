// Package config loads the credential provider configuration written by the
// deployment tooling. The file lives at ~/.ccwb/config.json and holds a map
// of named profiles. Configuration is read once per invocation and never
// written back by this tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/logger"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

const (
	// ConfigDirEnv overrides the configuration directory location.
	ConfigDirEnv = "CCWB_CONFIG_DIR"

	configDirName  = ".ccwb"
	configFileName = "config.json"

	// DefaultProfileName is used when neither the flag nor the config file
	// selects a profile.
	DefaultProfileName = "ClaudeCode"

	defaultAWSRegion    = "us-east-1"
	defaultRedirectPort = 8400
	defaultQuotaTimeout = 10 * time.Second

	// defaultQuotaRecheck throttles quota re-evaluation on cache hits when the
	// document does not set recheck_interval. An explicit 0 keeps the
	// check-every-invocation behavior, so the default is applied on the raw
	// document where absence is visible.
	defaultQuotaRecheck = 30 * time.Minute
)

// Dir returns the configuration directory, honoring CCWB_CONFIG_DIR.
func Dir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// Path returns the full path of the configuration file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads and normalizes the configuration file at the default location.
func Load() (*schema.Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads and normalizes the configuration file at the given path.
// Legacy documents (flat single-profile files, okta_domain keys) are migrated
// in memory; the file on disk is never rewritten.
func LoadFrom(path string) (*schema.Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errUtils.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: reading %s: %v", errUtils.ErrInvalidProviderConfig, path, err)
	}

	raw := v.AllSettings()
	migrateLegacy(raw)
	applyQuotaRecheckDefault(raw)

	var cfg schema.Config
	migrated := viper.New()
	if err := migrated.MergeConfigMap(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errUtils.ErrInvalidProviderConfig, err)
	}
	if err := migrated.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", errUtils.ErrInvalidProviderConfig, path, err)
	}

	for name, profile := range cfg.Profiles {
		profile.Name = name
		applyDefaults(&profile)
		cfg.Profiles[name] = profile
	}
	return &cfg, nil
}

// GetProfile resolves a profile by name. An empty name falls back to the
// config's default profile, then to DefaultProfileName.
func GetProfile(cfg *schema.Config, name string) (*schema.Profile, error) {
	if name == "" {
		name = cfg.DefaultProfile
	}
	if name == "" {
		name = DefaultProfileName
	}
	profile, ok := cfg.Profiles[name]
	if !ok {
		// viper lowercases map keys on unmarshal; fall back to a
		// case-insensitive match so profile names stay user-facing.
		for key, p := range cfg.Profiles {
			if strings.EqualFold(key, name) {
				profile, ok = p, true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUtils.ErrProfileNotFound, name)
	}
	if err := Validate(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Validate checks that a profile carries the fields its federation type needs.
func Validate(p *schema.Profile) error {
	if p.ProviderDomain == "" {
		return fmt.Errorf("%w: profile %q missing provider_domain", errUtils.ErrInvalidProviderConfig, p.Name)
	}
	if p.ClientID == "" {
		return fmt.Errorf("%w: profile %q missing client_id", errUtils.ErrInvalidProviderConfig, p.Name)
	}
	switch p.FederationType {
	case schema.FederationDirectSTS:
		if p.RoleARN == "" {
			return fmt.Errorf("%w: profile %q uses direct federation but has no role_arn", errUtils.ErrInvalidProviderConfig, p.Name)
		}
	case schema.FederationCognito:
		if p.IdentityPoolID == "" {
			return fmt.Errorf("%w: profile %q uses cognito federation but has no identity_pool_id", errUtils.ErrInvalidProviderConfig, p.Name)
		}
	default:
		return fmt.Errorf("%w: profile %q has unknown federation_type %q", errUtils.ErrInvalidProviderConfig, p.Name, p.FederationType)
	}
	return nil
}

// SessionDuration returns the requested credential lifetime for a profile,
// clamped to what the federation path can honor (12h for STS, 8h for Cognito).
func SessionDuration(p *schema.Profile) time.Duration {
	maxDuration := 12 * time.Hour
	if p.FederationType == schema.FederationCognito {
		maxDuration = 8 * time.Hour
	}

	duration := time.Hour
	if p.SessionDuration != "" {
		parsed, err := time.ParseDuration(p.SessionDuration)
		if err != nil {
			logger.Warn("Invalid session_duration, using default", "profile", p.Name, "value", p.SessionDuration)
		} else {
			duration = parsed
		}
	}

	if duration > maxDuration {
		logger.Warn("session_duration exceeds federation maximum, clamping",
			"profile", p.Name, "requested", duration, "max", maxDuration)
		duration = maxDuration
	}
	if duration < 15*time.Minute {
		duration = 15 * time.Minute
	}
	return duration
}

// DetectProviderType infers the provider family from the domain suffix.
func DetectProviderType(domain string) schema.ProviderType {
	domain = strings.ToLower(domain)
	switch {
	case strings.Contains(domain, ".okta.com") || strings.Contains(domain, ".oktapreview.com"):
		return schema.ProviderOkta
	case strings.Contains(domain, ".auth0.com"):
		return schema.ProviderAuth0
	case strings.Contains(domain, ".microsoftonline.com") || strings.Contains(domain, ".windows.net") || strings.Contains(domain, ".ciamlogin.com"):
		return schema.ProviderAzure
	case strings.Contains(domain, ".amazoncognito.com"):
		return schema.ProviderCognito
	default:
		return schema.ProviderAuto
	}
}

func applyDefaults(p *schema.Profile) {
	if p.AWSRegion == "" {
		p.AWSRegion = defaultAWSRegion
	}
	if p.CredentialStorage == "" {
		p.CredentialStorage = schema.StorageSession
	}
	if p.RedirectPort == 0 {
		p.RedirectPort = defaultRedirectPort
	}
	if p.ProviderType == "" || p.ProviderType == schema.ProviderAuto {
		p.ProviderType = DetectProviderType(p.ProviderDomain)
	}
	if p.FederationType == "" {
		if p.IdentityPoolID != "" {
			p.FederationType = schema.FederationCognito
		} else {
			p.FederationType = schema.FederationDirectSTS
		}
	}
	if p.Quota.Endpoint != "" {
		if p.Quota.FailMode == "" {
			p.Quota.FailMode = schema.FailOpen
		}
		if p.Quota.Timeout == 0 {
			p.Quota.Timeout = defaultQuotaTimeout
		}
	}
}

// migrateLegacy rewrites configuration documents produced by older deployment
// tooling: okta_domain becomes provider_domain, and a flat document without a
// profiles map is wrapped as a single profile under DefaultProfileName.
func migrateLegacy(raw map[string]any) {
	if _, ok := raw["profiles"]; !ok {
		if hasProfileShape(raw) {
			single := map[string]any{}
			for k, val := range raw {
				single[k] = val
				delete(raw, k)
			}
			raw["profiles"] = map[string]any{DefaultProfileName: single}
			raw["default_profile"] = DefaultProfileName
		}
	}

	profiles, ok := raw["profiles"].(map[string]any)
	if !ok {
		return
	}
	for _, p := range profiles {
		profile, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if domain, ok := profile["okta_domain"]; ok {
			if _, exists := profile["provider_domain"]; !exists {
				profile["provider_domain"] = domain
			}
			delete(profile, "okta_domain")
		}
		if region, ok := profile["region"]; ok {
			if _, exists := profile["aws_region"]; !exists {
				profile["aws_region"] = region
			}
			delete(profile, "region")
		}
	}
}

// applyQuotaRecheckDefault sets recheck_interval on quota-enabled profiles
// that leave the key out entirely. This runs on the raw document because the
// unmarshaled struct cannot tell an absent key from an explicit 0.
func applyQuotaRecheckDefault(raw map[string]any) {
	profiles, ok := raw["profiles"].(map[string]any)
	if !ok {
		return
	}
	for _, p := range profiles {
		profile, ok := p.(map[string]any)
		if !ok {
			continue
		}
		quota, ok := profile["quota"].(map[string]any)
		if !ok {
			continue
		}
		if endpoint, _ := quota["endpoint"].(string); endpoint == "" {
			continue
		}
		if _, ok := quota["recheck_interval"]; !ok {
			quota["recheck_interval"] = defaultQuotaRecheck.String()
		}
	}
}

func hasProfileShape(raw map[string]any) bool {
	for _, key := range []string{"provider_domain", "okta_domain", "client_id"} {
		if _, ok := raw[key]; ok {
			return true
		}
	}
	return false
}
