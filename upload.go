package kvenv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const uploadRuler = "============================================================"

// LoadEnvFile reads a .env file into a map, dropping entries with empty
// values and commented-out keys.
func LoadEnvFile(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	filtered := lo.PickBy(vars, func(key, value string) bool {
		return value != "" && !strings.HasPrefix(key, "#")
	})

	log.Printf("[INFO] loaded %d environment variables from %s", len(filtered), path)

	return filtered, nil
}

// MapSecrets pairs each declared secret with its value from the env file,
// keeping declaration order. Declared env vars absent from the file are
// returned separately; they are skipped, not fatal.
func MapSecrets(app ApplicationConfig, envName string, envVars map[string]string) ([]SecretValue, []string) {
	pairs := []SecretValue{}
	missing := []string{}

	for _, def := range app.Secrets {
		value, ok := envVars[def.EnvVar]
		if !ok {
			missing = append(missing, def.EnvVar)
			continue
		}
		pairs = append(pairs, SecretValue{
			Name:  BuildSecretName(app.Name, envName, def.VaultKey),
			Value: value,
		})
	}

	return pairs, missing
}

// MaskValue hides a secret for dry-run display: first four characters, the
// rest starred. Short values are fully starred.
func MaskValue(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return value[:4] + strings.Repeat("*", len(value)-4)
}

// Uploader pushes mapped secrets into a SecretStore.
type Uploader struct {
	Store SecretStore
	Out   io.Writer
}

// Upload writes each secret to the vault, one at a time. Individual upload
// failures are counted and reported; a vault access failure (auth, network)
// aborts the whole run since the remaining uploads would fail the same way.
func (u Uploader) Upload(ctx context.Context, pairs []SecretValue) (UploadSummary, error) {
	summary := UploadSummary{}

	for _, pair := range pairs {
		log.Printf("[INFO] uploading secret: %s", pair.Name)

		if err := u.Store.SetSecret(ctx, pair.Name, pair.Value); err != nil {
			var accessErr *VaultAccessError
			if errors.As(err, &accessErr) {
				return summary, err
			}
			summary.Failed++
			log.Printf("[ERROR] failed to upload %s: %s", pair.Name, err)
			continue
		}

		summary.Uploaded++
		log.Printf("[DEBUG] uploaded: %s", pair.Name)
	}

	fmt.Fprintln(u.Out, uploadRuler)
	fmt.Fprintf(u.Out, "Upload complete: %d secrets uploaded\n", summary.Uploaded)
	if summary.Failed > 0 {
		fmt.Fprintf(u.Out, "Failed uploads: %d secrets\n", summary.Failed)
	}
	fmt.Fprintln(u.Out, uploadRuler)

	return summary, nil
}

// Preview prints what Upload would push, with masked values. No vault calls.
func (u Uploader) Preview(pairs []SecretValue) {
	fmt.Fprintln(u.Out, "DRY RUN - secrets that would be uploaded:")
	fmt.Fprintln(u.Out, uploadRuler)
	for _, pair := range pairs {
		fmt.Fprintf(u.Out, "%s = %s\n", pair.Name, MaskValue(pair.Value))
	}
	fmt.Fprintln(u.Out, uploadRuler)
	fmt.Fprintf(u.Out, "Total secrets to upload: %d\n", len(pairs))
}
