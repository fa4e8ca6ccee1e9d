package kvenv

import (
	"fmt"
	"strings"
)

// ConfigError reports an unusable catalog: file missing, unparseable, or
// failing load-time validation. Always fatal.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// UnknownApplicationError carries the known application names so the CLI
// can show the user their choices.
type UnknownApplicationError struct {
	Name  string
	Known []string
}

func (e *UnknownApplicationError) Error() string {
	return fmt.Sprintf("unknown application '%s' (known applications: %s)",
		e.Name, strings.Join(e.Known, ", "))
}

// UnknownEnvironmentError carries the application's declared environments.
type UnknownEnvironmentError struct {
	App   string
	Env   string
	Valid []string
}

func (e *UnknownEnvironmentError) Error() string {
	return fmt.Sprintf("environment '%s' not supported for application '%s' (valid environments: %s)",
		e.Env, e.App, strings.Join(e.Valid, ", "))
}

// VaultAccessError is any vault failure other than a plain not-found:
// authentication, authorization, network. Fatal for the whole run.
type VaultAccessError struct {
	Vault      string
	SecretName string
	StatusCode int
	Err        error
}

func (e *VaultAccessError) Error() string {
	if e.SecretName == "" {
		return fmt.Sprintf("cannot access Key Vault %s: %s", e.Vault, e.Err)
	}
	return fmt.Sprintf("cannot access secret %s in Key Vault %s: %s", e.SecretName, e.Vault, e.Err)
}

func (e *VaultAccessError) Unwrap() error { return e.Err }

// Remediation returns actionable hints for the most common causes.
func (e *VaultAccessError) Remediation() []string {
	switch e.StatusCode {
	case 401:
		return []string{
			"make sure you are authenticated: az login",
			"check that your account has access to the Key Vault",
		}
	case 403:
		return []string{
			"check the Key Vault access policy or RBAC role assignments for your identity",
			"if the vault has a firewall, make sure your IP is allow-listed",
		}
	default:
		return []string{
			"make sure you are authenticated: az login",
			"check network access to the vault (firewall / private endpoint)",
		}
	}
}
