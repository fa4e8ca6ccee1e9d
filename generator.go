package kvenv

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/samber/lo"
)

const headerRuler = "# ============================================================"

// BuildSecretName derives the vault secret name for one declared secret.
// The concatenation is the lookup contract shared with the upload side and
// with secrets already stored in the vault, so it is reproduced byte for
// byte, without normalization. Note that dashes inside appName or envName
// make the mapping ambiguous; the catalog vault_key charset check narrows
// this but does not remove it.
func BuildSecretName(appName, envName, vaultKey string) string {
	return fmt.Sprintf("%s-%s-%s", appName, envName, vaultKey)
}

// Generator runs the resolve-and-render pipeline against a SecretStore.
type Generator struct {
	Store SecretStore

	// Now is the timestamp source for the artifact header. Defaults to
	// time.Now.
	Now func() time.Time
}

// Resolve fetches every declared secret, one at a time, in declaration
// order. A secret missing from the vault is recorded and the loop keeps
// going; any other vault failure aborts immediately.
func (g Generator) Resolve(ctx context.Context, app ApplicationConfig, envName string) ([]ResolvedSecret, error) {
	resolved := make([]ResolvedSecret, 0, len(app.Secrets))

	for _, def := range app.Secrets {
		secretName := BuildSecretName(app.Name, envName, def.VaultKey)
		log.Printf("[DEBUG] fetching secret %s", secretName)

		value, found, err := g.Store.GetSecret(ctx, secretName)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch secret %s: %w", secretName, err)
		}
		if !found {
			log.Printf("[WARN] secret not found: %s", secretName)
		}

		resolved = append(resolved, ResolvedSecret{
			Definition: def,
			SecretName: secretName,
			Value:      value,
			Found:      found,
		})
	}

	return resolved, nil
}

// Render assembles the artifact: a header block, then one VAR=value line
// per resolved secret in declaration order, grouped under upper-cased
// category headers. A new header is emitted whenever the category differs
// from the previously emitted one (first-seen order, not sorted).
func (g Generator) Render(app ApplicationConfig, envName, vaultName string, resolved []ResolvedSecret) []byte {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	var b strings.Builder
	b.WriteString(headerRuler + "\n")
	fmt.Fprintf(&b, "# Environment Variables for %s (%s environment)\n", app.Name, envName)
	fmt.Fprintf(&b, "# Generated on: %s\n", now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "# Key Vault: %s\n", vaultName)
	b.WriteString(headerRuler + "\n")
	b.WriteString("\n")

	category := ""
	for i, rs := range resolved {
		if i == 0 || rs.Definition.Category != category {
			if i > 0 {
				b.WriteString("\n")
			}
			category = rs.Definition.Category
			fmt.Fprintf(&b, "# %s\n", strings.ToUpper(category))
		}
		fmt.Fprintf(&b, "%s=%s\n", rs.Definition.EnvVar, rs.Value)
	}

	return []byte(b.String())
}

// Summarize counts fetch outcomes for console reporting.
func Summarize(resolved []ResolvedSecret) Summary {
	missing := lo.FilterMap(resolved, func(rs ResolvedSecret, _ int) (string, bool) {
		return rs.SecretName, !rs.Found
	})

	return Summary{
		FoundCount:         len(resolved) - len(missing),
		TotalCount:         len(resolved),
		MissingSecretNames: missing,
	}
}
