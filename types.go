package kvenv

import "context"

// SecretStore is the vault capability injected into the generator and
// uploader. GetSecret distinguishes three outcomes: a value (found=true),
// a secret that does not exist in the vault (found=false, err=nil), and an
// access or infrastructure failure (err != nil), which callers must treat
// as fatal for the whole run.
type SecretStore interface {
	Name() string
	GetSecret(ctx context.Context, secretName string) (value string, found bool, err error)
	SetSecret(ctx context.Context, secretName, value string) error
}

// SecretDefinition declares one environment variable backed by a vault secret.
type SecretDefinition struct {
	EnvVar      string `json:"env_var" yaml:"env_var"`
	VaultKey    string `json:"vault_key" yaml:"vault_key"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
}

// ApplicationConfig describes one application's declared secrets. Secrets
// keep their declaration order from the catalog file.
type ApplicationConfig struct {
	Name         string
	Description  string
	Environments []string
	Secrets      []SecretDefinition
}

// Catalog is the fully loaded configuration: one vault shared by all
// applications, applications in declaration order.
type Catalog struct {
	VaultName    string
	Applications []ApplicationConfig
}

// ApplicationSummary is a display row for the list command.
type ApplicationSummary struct {
	Name         string
	Description  string
	Environments []string
	SecretCount  int
}

// ResolvedSecret is the outcome of one vault lookup. Found=false means the
// secret does not exist in the vault; Value is empty in that case.
type ResolvedSecret struct {
	Definition SecretDefinition
	SecretName string
	Value      string
	Found      bool
}

// Summary aggregates the fetch outcomes of one generator run.
type Summary struct {
	FoundCount         int
	TotalCount         int
	MissingSecretNames []string
}

// SecretValue pairs a derived vault secret name with the value to upload.
type SecretValue struct {
	Name  string
	Value string
}

// UploadSummary aggregates the outcomes of one upload run.
type UploadSummary struct {
	Uploaded int
	Failed   int
}
