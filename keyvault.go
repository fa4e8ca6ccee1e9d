package kvenv

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// KeyVaultStore implements SecretStore on Azure Key Vault using the default
// credential chain (az login, managed identity, environment variables).
type KeyVaultStore struct {
	vaultName string
	client    *azsecrets.Client
}

func NewKeyVaultStore(vaultName string) (*KeyVaultStore, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, &VaultAccessError{Vault: vaultName, Err: fmt.Errorf("failed to build credential: %w", err)}
	}

	vaultURI := fmt.Sprintf("https://%s.vault.azure.net", vaultName)
	client, err := azsecrets.NewClient(vaultURI, cred, nil)
	if err != nil {
		return nil, &VaultAccessError{Vault: vaultName, Err: fmt.Errorf("failed to create client: %w", err)}
	}

	log.Printf("[DEBUG] connected to Key Vault %s", vaultName)

	return &KeyVaultStore{vaultName: vaultName, client: client}, nil
}

func (s *KeyVaultStore) Name() string { return "Key Vault " + s.vaultName }

// GetSecret fetches the latest version of a secret. A 404 from the vault is
// reported as not-found, never as an error; everything else is a
// *VaultAccessError because it hints at misconfiguration affecting the
// whole run, not just this secret.
func (s *KeyVaultStore) GetSecret(ctx context.Context, secretName string) (string, bool, error) {
	resp, err := s.client.GetSecret(ctx, secretName, "", nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			if respErr.StatusCode == http.StatusNotFound {
				return "", false, nil
			}
			return "", false, &VaultAccessError{
				Vault:      s.vaultName,
				SecretName: secretName,
				StatusCode: respErr.StatusCode,
				Err:        err,
			}
		}
		return "", false, &VaultAccessError{Vault: s.vaultName, SecretName: secretName, Err: err}
	}

	if resp.Value == nil {
		return "", true, nil
	}
	return *resp.Value, true, nil
}

func (s *KeyVaultStore) SetSecret(ctx context.Context, secretName, value string) error {
	params := azsecrets.SetSecretParameters{Value: &value}
	if _, err := s.client.SetSecret(ctx, secretName, params, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && (respErr.StatusCode == http.StatusUnauthorized || respErr.StatusCode == http.StatusForbidden) {
			return &VaultAccessError{
				Vault:      s.vaultName,
				SecretName: secretName,
				StatusCode: respErr.StatusCode,
				Err:        err,
			}
		}
		return fmt.Errorf("failed to set secret %s: %w", secretName, err)
	}
	return nil
}
