package awssm

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"

	"github.com/fractic-io/envcfg/pkg/provider"
)

type stubClient struct {
	input *secretsmanager.GetSecretValueInput
	out   *secretsmanager.GetSecretValueOutput
	err   error
	calls int
}

func (s *stubClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	s.input = params
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

func TestProviderFetchString(t *testing.T) {
	stub := &stubClient{
		out: &secretsmanager.GetSecretValueOutput{SecretString: aws.String("k-123")},
	}
	p, err := New(stub, WithVersionStage("AWSCURRENT"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	got, err := p.Fetch(context.Background(), "prod/api-key")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if got != "k-123" {
		t.Fatalf("expected k-123, got %s", got)
	}
	if aws.ToString(stub.input.SecretId) != "prod/api-key" {
		t.Errorf("SecretId = %q", aws.ToString(stub.input.SecretId))
	}
	if aws.ToString(stub.input.VersionStage) != "AWSCURRENT" {
		t.Errorf("expected version stage to be set, got %+v", stub.input)
	}
}

func TestProviderFetchBinary(t *testing.T) {
	stub := &stubClient{
		out: &secretsmanager.GetSecretValueOutput{SecretBinary: []byte("abc")},
	}
	p, _ := New(stub)
	got, err := p.Fetch(context.Background(), "secret")
	if err != nil || got != "abc" {
		t.Fatalf("Fetch = %q, %v", got, err)
	}
}

func TestProviderFetchBundleField(t *testing.T) {
	stub := &stubClient{
		out: &secretsmanager.GetSecretValueOutput{
			SecretString: aws.String(`{"DATABASE_URL":"postgres://db","PORT":5432}`),
		},
	}
	p, _ := New(stub)

	got, err := p.Fetch(context.Background(), "prod/app#DATABASE_URL")
	if err != nil || got != "postgres://db" {
		t.Fatalf("Fetch = %q, %v", got, err)
	}
	if aws.ToString(stub.input.SecretId) != "prod/app" {
		t.Errorf("SecretId = %q, want field stripped", aws.ToString(stub.input.SecretId))
	}
	if _, err := p.Fetch(context.Background(), "prod/app#MISSING"); provider.KindOf(err) != provider.NotFound {
		t.Errorf("missing field: got %v, want NotFound", err)
	}
}

func TestProviderFetchMissingPayload(t *testing.T) {
	p, _ := New(&stubClient{out: &secretsmanager.GetSecretValueOutput{}})
	if _, err := p.Fetch(context.Background(), "secret"); provider.KindOf(err) != provider.NotFound {
		t.Fatalf("expected NotFound for empty payload, got %v", err)
	}
}

func TestProviderErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want provider.FailureKind
	}{
		{"not found", &types.ResourceNotFoundException{Message: aws.String("no such secret")}, provider.NotFound},
		{"scheduled for deletion", &types.InvalidRequestException{Message: aws.String("marked for deletion")}, provider.NotFound},
		{"invalid parameter", &types.InvalidParameterException{Message: aws.String("bad version stage")}, provider.NotFound},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "denied"}, provider.AccessDenied},
		{"decryption", &types.DecryptionFailure{Message: aws.String("kms")}, provider.AccessDenied},
		{"internal", &types.InternalServiceError{Message: aws.String("oops")}, provider.Transient},
		{"throttled", &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}, provider.Transient},
		{"deadline", context.DeadlineExceeded, provider.Transient},
		{"network", errors.New("connection reset"), provider.Transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := New(&stubClient{err: tt.err})
			_, err := p.Fetch(context.Background(), "prod/api-key")
			if got := provider.KindOf(err); got != tt.want {
				t.Errorf("KindOf(%v) = %s, want %s", err, got, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("classified error does not wrap the SDK error")
			}
			if provider.IsPermanent(err) != (tt.want != provider.Transient) {
				t.Errorf("IsPermanent(%v) = %v for kind %s", err, provider.IsPermanent(err), tt.want)
			}
		})
	}
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error when client is nil")
	}
}

func TestNewFromRegionRequiresRegion(t *testing.T) {
	if _, err := NewFromRegion(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty region")
	}
}
