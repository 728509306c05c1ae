package config

import "strings"

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// IsDevelopment reports whether the console runs with development defaults
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Server.Environment, EnvDevelopment)
}

// IsProductionLike returns true for staging and production.
// Use this when you need to enforce production-like configuration requirements.
func (c *Config) IsProductionLike() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == EnvStaging || env == EnvProduction
}
