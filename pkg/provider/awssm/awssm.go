// Package awssm serves secret keys from AWS Secrets Manager.
package awssm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"github.com/fractic-io/envcfg/pkg/provider"
)

// SecretsManagerClient captures the subset of the AWS Secrets Manager client
// used by the provider. *secretsmanager.Client satisfies this interface.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Provider loads values from AWS Secrets Manager. Identifiers are either a
// secret id or "secret-id#FIELD", where FIELD selects a member of a JSON
// object secret.
type Provider struct {
	client       SecretsManagerClient
	versionStage *string
	callOpts     []func(*secretsmanager.Options)
}

// Option configures the AWS provider.
type Option func(*Provider)

// WithVersionStage requests a specific version stage (defaults to AWSCURRENT).
func WithVersionStage(stage string) Option {
	return func(p *Provider) {
		if stage != "" {
			p.versionStage = aws.String(stage)
		}
	}
}

// WithClientOptions forwards Secrets Manager call options to each fetch.
func WithClientOptions(opts ...func(*secretsmanager.Options)) Option {
	return func(p *Provider) {
		p.callOpts = append(p.callOpts, opts...)
	}
}

// New constructs a Secrets Manager provider.
func New(client SecretsManagerClient, opts ...Option) (*Provider, error) {
	if client == nil {
		return nil, errors.New("awssm: client is required")
	}
	p := &Provider{client: client}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewFromRegion builds a client from the default credential chain for region.
// The SDK's own retryer is disabled; retries belong to the resolver.
func NewFromRegion(ctx context.Context, region string, opts ...Option) (*Provider, error) {
	if region == "" {
		return nil, errors.New("awssm: region is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("awssm: load AWS config: %w", err)
	}
	return New(secretsmanager.NewFromConfig(cfg), opts...)
}

// Fetch retrieves the secret named by identifier.
func (p *Provider) Fetch(ctx context.Context, identifier string) (string, error) {
	id, field := provider.SplitField(identifier)
	if id == "" {
		return "", provider.NotFoundError(identifier, errors.New("awssm: secret id cannot be empty"))
	}

	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)}
	if p.versionStage != nil {
		input.VersionStage = p.versionStage
	}
	out, err := p.client.GetSecretValue(ctx, input, p.callOpts...)
	if err != nil {
		return "", classify(identifier, err)
	}

	var payload string
	switch {
	case out.SecretString != nil:
		payload = aws.ToString(out.SecretString)
	case len(out.SecretBinary) > 0:
		payload = string(out.SecretBinary)
	}
	if payload == "" {
		return "", provider.NotFoundError(identifier, errors.New("awssm: secret contained no payload"))
	}

	if field == "" {
		return payload, nil
	}
	return provider.SelectField(identifier, payload, field)
}

// classify maps Secrets Manager error codes onto the provider failure kinds.
func classify(identifier string, err error) error {
	wrapped := fmt.Errorf("awssm: %w", err)

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		// InvalidRequestException covers secrets scheduled for deletion and
		// InvalidParameterException malformed ids or version stages; neither
		// changes on retry.
		case "ResourceNotFoundException", "InvalidRequestException", "InvalidParameterException":
			return provider.NotFoundError(identifier, wrapped)
		case "AccessDeniedException", "DecryptionFailure", "UnrecognizedClientException",
			"InvalidSignatureException", "ExpiredTokenException":
			return provider.AccessDeniedError(identifier, wrapped)
		}
	}
	return provider.TransientError(identifier, wrapped)
}
