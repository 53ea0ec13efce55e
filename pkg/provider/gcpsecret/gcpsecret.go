// Package gcpsecret serves secret keys from Google Secret Manager.
package gcpsecret

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fractic-io/envcfg/pkg/provider"
)

// Client represents the subset of the Secret Manager client used.
type Client interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// Provider fetches secrets from Google Secret Manager. Identifiers are full
// resource names (projects/*/secrets/*/versions/*) or short secret ids when a
// project is configured; either form accepts a "#field" suffix.
type Provider struct {
	client  Client
	closer  io.Closer
	project string
	version string
}

// Option configures the provider.
type Option func(*Provider)

// WithProject sets the project used to expand short secret ids.
func WithProject(projectID string) Option {
	return func(p *Provider) {
		p.project = projectID
	}
}

// WithVersion overrides the default version (latest).
func WithVersion(version string) Option {
	return func(p *Provider) {
		if version != "" {
			p.version = version
		}
	}
}

// New constructs a Secret Manager provider.
func New(client Client, opts ...Option) (*Provider, error) {
	if client == nil {
		return nil, errors.New("gcpsecret: client is required")
	}
	p := &Provider{
		client:  client,
		version: "latest",
	}
	if c, ok := client.(io.Closer); ok {
		p.closer = c
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewFromDefault dials Secret Manager with application default credentials.
func NewFromDefault(ctx context.Context, opts ...Option) (*Provider, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcpsecret: create client: %w", err)
	}
	return New(client, opts...)
}

// Close releases the underlying client connection, if it has one.
func (p *Provider) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// Fetch retrieves the secret identified by identifier.
func (p *Provider) Fetch(ctx context.Context, identifier string) (string, error) {
	key, field := provider.SplitField(identifier)
	if key == "" {
		return "", provider.NotFoundError(identifier, errors.New("gcpsecret: secret name cannot be empty"))
	}
	name := key
	if !strings.HasPrefix(key, "projects/") {
		if p.project == "" {
			return "", provider.NotFoundError(identifier, errors.New("gcpsecret: project must be set when using short secret names"))
		}
		name = fmt.Sprintf("projects/%s/secrets/%s/versions/%s", p.project, key, p.version)
	}

	resp, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", classify(identifier, err)
	}
	if len(resp.GetPayload().GetData()) == 0 {
		return "", provider.NotFoundError(identifier, errors.New("gcpsecret: secret payload empty"))
	}

	payload := string(resp.GetPayload().GetData())
	if field == "" {
		return payload, nil
	}
	return provider.SelectField(identifier, payload, field)
}

func classify(identifier string, err error) error {
	wrapped := fmt.Errorf("gcpsecret: %w", err)
	switch status.Code(err) {
	case codes.NotFound:
		return provider.NotFoundError(identifier, wrapped)
	case codes.PermissionDenied, codes.Unauthenticated:
		return provider.AccessDeniedError(identifier, wrapped)
	default:
		return provider.TransientError(identifier, wrapped)
	}
}
