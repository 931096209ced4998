package core

import "strings"

// Environment represents the deployment environment of the service.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// String returns the string representation of the environment.
func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether the environment corresponds to production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// Decode lets envconfig populate an Environment field directly from APP_ENV.
func (e *Environment) Decode(value string) error {
	*e = ParseEnvironment(value)
	return nil
}

// ParseEnvironment normalises the provided value into one of the known environments.
// Short aliases (prod, stage, test, dev) are accepted and matching is case-insensitive.
// Unknown values fall back to Development so a local chat session still starts.
func ParseEnvironment(v string) Environment {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	case "testing", "test":
		return Testing
	default:
		return Development
	}
}
