// Package secrets loads operator static variables from AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// API is the subset of the Secrets Manager client used here.
type API interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Source implements ports.StaticVarSource.
type Source struct {
	client API
}

// NewSource creates a Source using the default AWS credential chain.
func NewSource(ctx context.Context) (*Source, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Source{
		client: secretsmanager.NewFromConfig(cfg),
	}, nil
}

// NewSourceWithClient creates a Source over an existing client.
func NewSourceWithClient(client API) *Source {
	return &Source{client: client}
}

// StaticVars fetches a secret holding a flat JSON object of strings, e.g.
// {"minombre": "Laura", "miempresa": "Acme"}.
func (s *Source) StaticVars(ctx context.Context, secretName string) (map[string]string, error) {
	if secretName == "" {
		return nil, fmt.Errorf("secret name is empty")
	}

	output, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch secret %q from secrets manager: %w", secretName, err)
	}

	if output.SecretString == nil {
		return nil, fmt.Errorf("secret %q has no string value (binary secrets not supported)", secretName)
	}

	return ParseStaticVars(secretName, *output.SecretString)
}

// ParseStaticVars decodes a secret string into static variables.
func ParseStaticVars(secretName, data string) (map[string]string, error) {
	var vars map[string]string
	if err := json.Unmarshal([]byte(data), &vars); err != nil {
		return nil, fmt.Errorf("parse secret %q as JSON object of strings: %w", secretName, err)
	}

	if len(vars) == 0 {
		return nil, fmt.Errorf("secret %q has no variables", secretName)
	}

	for name := range vars {
		if name == "" {
			return nil, fmt.Errorf("secret %q has an empty variable name", secretName)
		}
	}

	return vars, nil
}
