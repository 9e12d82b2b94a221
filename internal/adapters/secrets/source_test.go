package secrets

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type fakeAPI struct {
	secret *string
	err    error
	asked  string
}

func (f *fakeAPI) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.asked = aws.ToString(in.SecretId)
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.secret}, nil
}

func TestStaticVars(t *testing.T) {
	api := &fakeAPI{secret: aws.String(`{"minombre":"Laura","miempresa":"Acme"}`)}
	src := NewSourceWithClient(api)

	vars, err := src.StaticVars(context.Background(), "bulksender/campana")
	if err != nil {
		t.Fatalf("StaticVars() error = %v", err)
	}
	if api.asked != "bulksender/campana" {
		t.Errorf("asked for %q", api.asked)
	}
	if vars["minombre"] != "Laura" || vars["miempresa"] != "Acme" {
		t.Errorf("vars = %v", vars)
	}
}

func TestStaticVars_Errors(t *testing.T) {
	tests := []struct {
		name    string
		api     *fakeAPI
		secret  string
		wantErr string
	}{
		{"empty name", &fakeAPI{}, "", "secret name is empty"},
		{"fetch failure", &fakeAPI{err: errors.New("AccessDenied")}, "x", "AccessDenied"},
		{"binary secret", &fakeAPI{}, "x", "binary secrets not supported"},
		{"not an object", &fakeAPI{secret: aws.String(`["a"]`)}, "x", "JSON object of strings"},
		{"non-string value", &fakeAPI{secret: aws.String(`{"a":1}`)}, "x", "JSON object of strings"},
		{"no variables", &fakeAPI{secret: aws.String(`{}`)}, "x", "has no variables"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSourceWithClient(tt.api).StaticVars(context.Background(), tt.secret)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("StaticVars() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
