// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package types defines configuration types for the Registry Replicator application.
package types

// CloudKind identifies the managed registry provider used for push credentials.
type CloudKind string

const (
	CloudNone  CloudKind = ""      // No cloud provider; push unauthenticated
	CloudAWS   CloudKind = "aws"   // AWS Elastic Container Registry
	CloudAzure CloudKind = "azure" // Azure Container Registry
)

// Valid reports whether the cloud kind is one of the supported values.
func (k CloudKind) Valid() bool {
	switch k {
	case CloudNone, CloudAWS, CloudAzure:
		return true
	}
	return false
}

// RegistryCredentials holds credentials for pushing to a destination registry.
// They are resolved once per run, held in memory only, and reused for every
// push in that run.
type RegistryCredentials struct {
	Username string // Registry username (e.g., "AWS" for ECR)
	Password string // Registry password or short-lived token
	Registry string // Registry URL the credentials are valid for
}

// Complete reports whether all three fields are set.
func (c *RegistryCredentials) Complete() bool {
	return c != nil && c.Username != "" && c.Password != "" && c.Registry != ""
}

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	Registry RegistryConfig // Default registry configuration
	Job      JobConfig      // Replication job configuration
	Cloud    CloudConfig    // Cloud credential provider configuration
	CORS     CORSConfig     // CORS policy configuration
	OIDC     OIDCConfig     // OIDC authentication configuration
}

// ServerConfig defines HTTP server listening configuration.
type ServerConfig struct {
	Host string // Server listening address (e.g., "0.0.0.0", "127.0.0.1")
	Port int    // Server listening port (e.g., 8080)
}

// RegistryConfig defines default container registry addresses.
type RegistryConfig struct {
	DefaultSourceRegistry string // Default source registry URL (e.g., "https://registry.example.com")
	DefaultDestRegistry   string // Default destination registry URL
}

// JobConfig defines replication job behavior.
type JobConfig struct {
	Timeout    int  // Replication timeout per job in seconds (default: 600)
	StrictAuth bool // Fail instead of pushing unauthenticated when cloud credentials are incomplete
	Verbose    bool // Log pull/push progress line by line
}

// CloudConfig defines the cloud credential provider used for the destination registry.
type CloudConfig struct {
	Kind            CloudKind // Cloud provider kind ("aws", "azure", or empty)
	Region          string    // AWS region for the ECR control plane (e.g., "eu-central-1")
	CredentialsFile string    // Override path for the AWS shared credentials file (default: ~/.aws/credentials)
}

// CORSConfig defines Cross-Origin Resource Sharing policy.
type CORSConfig struct {
	AllowedOrigins []string // Allowed origins (e.g., ["*"], ["https://app.example.com"])
}

// OIDCConfig defines OIDC authentication configuration.
type OIDCConfig struct {
	ClientID     string // OIDC client ID
	ClientSecret string // OIDC client secret
	Issuer       string // OIDC issuer URL
	RedirectURL  string // OIDC redirect URL after authentication
	Enabled      bool   // Whether OIDC authentication is enabled
}
