// Package vault serves secret keys from a HashiCorp Vault KV v2 mount.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/fractic-io/envcfg/pkg/provider"
)

// KV is the subset of the Vault KV v2 interface the provider depends on.
type KV interface {
	Get(ctx context.Context, path string) (*vaultapi.KVSecret, error)
}

// Provider loads secrets from a Vault KV v2 mount. Identifiers are "path" or
// "path#field". Without a field, a secret holding a single entry (or an entry
// named "value") yields that entry and any other secret yields its data as
// JSON.
type Provider struct {
	kv KV
}

// New creates a Vault provider using the given KV accessor.
func New(kv KV) (*Provider, error) {
	if kv == nil {
		return nil, errors.New("vault: KV accessor is required")
	}
	return &Provider{kv: kv}, nil
}

// FromClient derives a KV accessor from a Vault client and mount path.
func FromClient(client *vaultapi.Client, mountPath string) (*Provider, error) {
	if client == nil {
		return nil, errors.New("vault: client is required")
	}
	if mountPath == "" {
		mountPath = "secret"
	}
	return New(client.KVv2(mountPath))
}

// NewFromEnv builds a client from VAULT_ADDR, VAULT_TOKEN and the other
// variables understood by the Vault API package.
func NewFromEnv(mountPath string) (*Provider, error) {
	cfg := vaultapi.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("vault: %w", cfg.Error)
	}
	// Retries belong to the resolver.
	cfg.MaxRetries = 0
	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault: create client: %w", err)
	}
	return FromClient(client, mountPath)
}

// Fetch retrieves the secret at the supplied path.
func (p *Provider) Fetch(ctx context.Context, identifier string) (string, error) {
	path, field := provider.SplitField(identifier)
	if path == "" {
		return "", provider.NotFoundError(identifier, errors.New("vault: secret path cannot be empty"))
	}
	secret, err := p.kv.Get(ctx, path)
	if err != nil {
		return "", classify(identifier, err)
	}
	if secret == nil || len(secret.Data) == 0 {
		return "", provider.NotFoundError(identifier, errors.New("vault: secret contained no data"))
	}
	if field != "" {
		return extractField(identifier, secret.Data, field)
	}
	return extractDefault(identifier, secret.Data)
}

func extractField(identifier string, data map[string]any, field string) (string, error) {
	value, ok := data[field]
	if !ok || value == nil {
		return "", provider.NotFoundError(identifier, fmt.Errorf("vault: field %q not found", field))
	}
	return render(identifier, value)
}

func extractDefault(identifier string, data map[string]any) (string, error) {
	if value, ok := data["value"]; ok && value != nil {
		return render(identifier, value)
	}
	if len(data) == 1 {
		for _, value := range data {
			if value != nil {
				return render(identifier, value)
			}
		}
	}
	return render(identifier, data)
}

func render(identifier string, value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	buf, err := json.Marshal(value)
	if err != nil {
		return "", provider.NotFoundError(identifier, fmt.Errorf("vault: marshal secret: %w", err))
	}
	return string(buf), nil
}

func classify(identifier string, err error) error {
	wrapped := fmt.Errorf("vault: %w", err)
	if errors.Is(err, vaultapi.ErrSecretNotFound) {
		return provider.NotFoundError(identifier, wrapped)
	}

	var respErr *vaultapi.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return provider.NotFoundError(identifier, wrapped)
		case http.StatusUnauthorized, http.StatusForbidden:
			return provider.AccessDeniedError(identifier, wrapped)
		}
	}
	return provider.TransientError(identifier, wrapped)
}
