// Package schema defines the configuration structures for the credential
// provider. Configuration is read once at process start and treated as
// immutable for the process lifetime.
package schema

import "time"

// FederationType selects how a validated OIDC token is exchanged for AWS
// credentials.
type FederationType string

const (
	// FederationDirectSTS exchanges the token via STS AssumeRoleWithWebIdentity.
	FederationDirectSTS FederationType = "direct"
	// FederationCognito exchanges the token via a Cognito Identity Pool.
	FederationCognito FederationType = "cognito"
)

// CredentialStorage selects the cache backend.
type CredentialStorage string

const (
	// StorageKeyring uses the OS secure store (Keychain, Credential Manager, Secret Service).
	StorageKeyring CredentialStorage = "keyring"
	// StorageFile uses an encrypted file keyring.
	StorageFile CredentialStorage = "file"
	// StorageSession uses a plain JSON file with owner-only permissions.
	StorageSession CredentialStorage = "session"
	// StorageMemory keeps credentials in process memory only (tests).
	StorageMemory CredentialStorage = "memory"
)

// ProviderType identifies the OIDC identity provider family.
type ProviderType string

const (
	ProviderOkta    ProviderType = "okta"
	ProviderAuth0   ProviderType = "auth0"
	ProviderAzure   ProviderType = "azure"
	ProviderCognito ProviderType = "cognito"
	// ProviderAuto detects the provider family from the domain suffix.
	ProviderAuto ProviderType = "auto"
)

// Profile is one deployment configuration. A config file holds a map of
// profiles keyed by name.
type Profile struct {
	Name              string            `yaml:"name" json:"name" mapstructure:"name"`
	ProviderDomain    string            `yaml:"provider_domain" json:"provider_domain" mapstructure:"provider_domain"`
	ClientID          string            `yaml:"client_id" json:"client_id" mapstructure:"client_id"`
	ProviderType      ProviderType      `yaml:"provider_type,omitempty" json:"provider_type,omitempty" mapstructure:"provider_type"`
	AWSRegion         string            `yaml:"aws_region,omitempty" json:"aws_region,omitempty" mapstructure:"aws_region"`
	FederationType    FederationType    `yaml:"federation_type,omitempty" json:"federation_type,omitempty" mapstructure:"federation_type"`
	RoleARN           string            `yaml:"role_arn,omitempty" json:"role_arn,omitempty" mapstructure:"role_arn"`
	IdentityPoolID    string            `yaml:"identity_pool_id,omitempty" json:"identity_pool_id,omitempty" mapstructure:"identity_pool_id"`
	CognitoUserPoolID string            `yaml:"cognito_user_pool_id,omitempty" json:"cognito_user_pool_id,omitempty" mapstructure:"cognito_user_pool_id"`
	CredentialStorage CredentialStorage `yaml:"credential_storage,omitempty" json:"credential_storage,omitempty" mapstructure:"credential_storage"`
	RedirectPort      int               `yaml:"redirect_port,omitempty" json:"redirect_port,omitempty" mapstructure:"redirect_port"`
	SessionDuration   string            `yaml:"session_duration,omitempty" json:"session_duration,omitempty" mapstructure:"session_duration"`
	DeviceFlow        bool              `yaml:"device_flow,omitempty" json:"device_flow,omitempty" mapstructure:"device_flow"`
	MonitoringEnabled bool              `yaml:"monitoring_enabled,omitempty" json:"monitoring_enabled,omitempty" mapstructure:"monitoring_enabled"`
	Keyring           KeyringConfig     `yaml:"keyring,omitempty" json:"keyring,omitempty" mapstructure:"keyring"`
	Quota             QuotaConfig       `yaml:"quota,omitempty" json:"quota,omitempty" mapstructure:"quota"`
}

// KeyringConfig defines file-keyring backend configuration.
type KeyringConfig struct {
	Path        string `yaml:"path,omitempty" json:"path,omitempty" mapstructure:"path"`
	PasswordEnv string `yaml:"password_env,omitempty" json:"password_env,omitempty" mapstructure:"password_env"`
}

// QuotaFailMode decides what happens when the quota service is unreachable.
type QuotaFailMode string

const (
	// FailOpen allows credential issuance when the quota check cannot run.
	FailOpen QuotaFailMode = "open"
	// FailClosed denies credential issuance when the quota check cannot run.
	FailClosed QuotaFailMode = "closed"
)

// QuotaConfig configures the quota-check gate.
type QuotaConfig struct {
	// Endpoint is the quota check API URL. Empty disables quota checking.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" mapstructure:"endpoint"`
	// RecheckInterval throttles re-evaluation while cached credentials are
	// still valid. Zero means check on every invocation.
	RecheckInterval time.Duration `yaml:"recheck_interval,omitempty" json:"recheck_interval,omitempty" mapstructure:"recheck_interval"`
	// FailMode is applied when the quota service is unreachable.
	FailMode QuotaFailMode `yaml:"fail_mode,omitempty" json:"fail_mode,omitempty" mapstructure:"fail_mode"`
	// Timeout bounds a single quota API call.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" mapstructure:"timeout"`
}

// Config is the root configuration document.
type Config struct {
	Version        string             `yaml:"version,omitempty" json:"version,omitempty" mapstructure:"version"`
	DefaultProfile string             `yaml:"default_profile,omitempty" json:"default_profile,omitempty" mapstructure:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles" json:"profiles" mapstructure:"profiles"`
}
