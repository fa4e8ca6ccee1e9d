package kvenv

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFileDropsEmptyValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_PASSWORD=hunter2\nAPI_KEY=\nJWT_SECRET=tok\n"), 0o600))

	vars, err := LoadEnvFile(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"DB_PASSWORD": "hunter2",
		"JWT_SECRET":  "tok",
	}, vars)
}

func TestLoadEnvFileMissing(t *testing.T) {
	_, err := LoadEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	require.Error(t, err)
}

func TestMapSecrets(t *testing.T) {
	app := ApplicationConfig{
		Name: "web",
		Secrets: []SecretDefinition{
			{EnvVar: "DB_PASSWORD", VaultKey: "db-password", Category: "database"},
			{EnvVar: "API_KEY", VaultKey: "api-key", Category: "api"},
			{EnvVar: "JWT_SECRET", VaultKey: "jwt-secret", Category: "auth"},
		},
	}
	envVars := map[string]string{
		"DB_PASSWORD": "hunter2",
		"JWT_SECRET":  "tok",
	}

	pairs, missing := MapSecrets(app, "prod", envVars)

	assert.Equal(t, []SecretValue{
		{Name: "web-prod-db-password", Value: "hunter2"},
		{Name: "web-prod-jwt-secret", Value: "tok"},
	}, pairs)
	assert.Equal(t, []string{"API_KEY"}, missing)
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"", "****"},
		{"ab", "****"},
		{"abcd", "****"},
		{"abcde", "abcd*"},
		{"hunter2secret", "hunt*********"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskValue(tt.value), "value %q", tt.value)
	}
}

func TestUploadCountsPerSecretFailures(t *testing.T) {
	store := &fakeStore{
		setErrs: map[string]error{
			"web-prod-api-key": errors.New("conflict"),
		},
	}
	out := &bytes.Buffer{}
	uploader := Uploader{Store: store, Out: out}

	summary, err := uploader.Upload(context.Background(), []SecretValue{
		{Name: "web-prod-db-password", Value: "hunter2"},
		{Name: "web-prod-api-key", Value: "k"},
		{Name: "web-prod-jwt-secret", Value: "tok"},
	})

	require.NoError(t, err)
	assert.Equal(t, UploadSummary{Uploaded: 2, Failed: 1}, summary)
	assert.Contains(t, out.String(), "Upload complete: 2 secrets uploaded")
	assert.Contains(t, out.String(), "Failed uploads: 1 secrets")
}

func TestUploadAbortsOnAccessError(t *testing.T) {
	store := &fakeStore{
		setErrs: map[string]error{
			"web-prod-db-password": &VaultAccessError{Vault: "kv1", SecretName: "web-prod-db-password", StatusCode: 401},
		},
	}
	uploader := Uploader{Store: store, Out: &bytes.Buffer{}}

	_, err := uploader.Upload(context.Background(), []SecretValue{
		{Name: "web-prod-db-password", Value: "hunter2"},
		{Name: "web-prod-jwt-secret", Value: "tok"},
	})

	var accessErr *VaultAccessError
	require.ErrorAs(t, err, &accessErr)
	// Nothing after the failing secret is attempted.
	assert.Empty(t, store.setCalls)
}

func TestPreviewMasksValues(t *testing.T) {
	out := &bytes.Buffer{}
	uploader := Uploader{Out: out}

	uploader.Preview([]SecretValue{
		{Name: "web-prod-db-password", Value: "hunter2secret"},
	})

	assert.Contains(t, out.String(), "web-prod-db-password = hunt*********")
	assert.NotContains(t, out.String(), "hunter2secret")
	assert.Contains(t, out.String(), "Total secrets to upload: 1")
}
