package secrets

import "context"

// Provider reads secrets stored as flat JSON string maps.
type Provider interface {
	// GetSecret returns the decoded secret stored under name.
	GetSecret(ctx context.Context, name string) (map[string]string, error)

	// ListSecrets returns the names of all secrets starting with prefix.
	ListSecrets(ctx context.Context, prefix string) ([]string, error)
}
