package kvenv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"

	"github.com/samber/lo"
	"gopkg.in/yaml.v2"
)

// Key Vault only accepts these characters in secret names, so a vault_key
// outside this set could never resolve. Rejected at load time.
var vaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

type applicationDoc struct {
	Description  string             `json:"description" yaml:"description"`
	Environments []string           `json:"environments" yaml:"environments"`
	Secrets      []SecretDefinition `json:"secrets" yaml:"secrets"`
}

// LoadCatalog reads and fully validates an app-configs file. JSON is the
// primary format; .yaml/.yml files are accepted too. Application order
// follows declaration order in the file. Any problem is a *ConfigError.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, &ConfigError{Path: path, Err: err}
	}

	var catalog Catalog
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		catalog, err = parseYAMLCatalog(data)
	default:
		catalog, err = parseJSONCatalog(data)
	}
	if err != nil {
		return Catalog{}, &ConfigError{Path: path, Err: err}
	}

	if err := validateCatalog(catalog); err != nil {
		return Catalog{}, &ConfigError{Path: path, Err: err}
	}

	log.Printf("[DEBUG] loaded catalog from %s: vault=%s applications=%d",
		path, catalog.VaultName, len(catalog.Applications))

	return catalog, nil
}

// parseJSONCatalog walks the document with a json.Decoder instead of
// unmarshalling into a map so that application declaration order survives.
func parseJSONCatalog(data []byte) (Catalog, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return Catalog{}, err
	}

	var catalog Catalog
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Catalog{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Catalog{}, fmt.Errorf("unexpected token %v", tok)
		}

		switch key {
		case "vault_name":
			if err := dec.Decode(&catalog.VaultName); err != nil {
				return Catalog{}, fmt.Errorf("failed to decode vault_name: %w", err)
			}
		case "applications":
			apps, err := parseJSONApplications(dec)
			if err != nil {
				return Catalog{}, err
			}
			catalog.Applications = apps
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return Catalog{}, err
			}
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return Catalog{}, err
	}

	return catalog, nil
}

func parseJSONApplications(dec *json.Decoder) ([]ApplicationConfig, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	apps := []ApplicationConfig{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in applications", tok)
		}

		var doc applicationDoc
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode application '%s': %w", name, err)
		}

		apps = append(apps, ApplicationConfig{
			Name:         name,
			Description:  doc.Description,
			Environments: doc.Environments,
			Secrets:      doc.Secrets,
		})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}

	return apps, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected '%c', got %v", want, tok)
	}
	return nil
}

func parseYAMLCatalog(data []byte) (Catalog, error) {
	var doc struct {
		VaultName    string        `yaml:"vault_name"`
		Applications yaml.MapSlice `yaml:"applications"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Catalog{}, err
	}

	catalog := Catalog{VaultName: doc.VaultName}
	for _, item := range doc.Applications {
		name := fmt.Sprintf("%v", item.Key)

		// Round-trip the loosely typed value into the typed doc.
		raw, err := yaml.Marshal(item.Value)
		if err != nil {
			return Catalog{}, fmt.Errorf("failed to re-encode application '%s': %w", name, err)
		}
		var app applicationDoc
		if err := yaml.Unmarshal(raw, &app); err != nil {
			return Catalog{}, fmt.Errorf("failed to decode application '%s': %w", name, err)
		}

		catalog.Applications = append(catalog.Applications, ApplicationConfig{
			Name:         name,
			Description:  app.Description,
			Environments: app.Environments,
			Secrets:      app.Secrets,
		})
	}

	return catalog, nil
}

func validateCatalog(c Catalog) error {
	if c.VaultName == "" {
		return fmt.Errorf("vault_name is missing or empty")
	}

	for _, app := range c.Applications {
		seen := map[string]bool{}
		for _, def := range app.Secrets {
			if def.EnvVar == "" {
				return fmt.Errorf("application '%s' declares a secret without env_var", app.Name)
			}
			if def.VaultKey == "" {
				return fmt.Errorf("application '%s' secret '%s' has no vault_key", app.Name, def.EnvVar)
			}
			if !vaultKeyPattern.MatchString(def.VaultKey) {
				return fmt.Errorf("application '%s' secret '%s' has invalid vault_key '%s' (allowed: letters, digits, dashes)",
					app.Name, def.EnvVar, def.VaultKey)
			}
			if seen[def.EnvVar] {
				return fmt.Errorf("application '%s' declares env_var '%s' more than once", app.Name, def.EnvVar)
			}
			seen[def.EnvVar] = true
		}
	}

	return nil
}

// Application looks an application up by name.
func (c Catalog) Application(name string) (ApplicationConfig, bool) {
	return lo.Find(c.Applications, func(app ApplicationConfig) bool {
		return app.Name == name
	})
}

// ApplicationNames returns all application names in declaration order.
func (c Catalog) ApplicationNames() []string {
	return lo.Map(c.Applications, func(app ApplicationConfig, _ int) string {
		return app.Name
	})
}

// Validate checks an (application, environment) selection against the
// catalog. The returned errors carry the valid choices for display.
func (c Catalog) Validate(appName, envName string) (ApplicationConfig, error) {
	app, ok := c.Application(appName)
	if !ok {
		return ApplicationConfig{}, &UnknownApplicationError{Name: appName, Known: c.ApplicationNames()}
	}

	if !lo.Contains(app.Environments, envName) {
		return ApplicationConfig{}, &UnknownEnvironmentError{App: appName, Env: envName, Valid: app.Environments}
	}

	return app, nil
}

// ListApplications returns display rows for every application, in
// declaration order.
func (c Catalog) ListApplications() []ApplicationSummary {
	return lo.Map(c.Applications, func(app ApplicationConfig, _ int) ApplicationSummary {
		return ApplicationSummary{
			Name:         app.Name,
			Description:  app.Description,
			Environments: app.Environments,
			SecretCount:  len(app.Secrets),
		}
	})
}
