package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	"github.com/Veraticus/grocer/internal/common"
	"github.com/Veraticus/grocer/internal/retailer"
)

// SecretAccessor reads the payload of one secret version.
type SecretAccessor interface {
	Access(ctx context.Context, name string) ([]byte, error)
}

// SecretManager reads secrets from GCP Secret Manager.
type SecretManager struct {
	client *secretmanager.Client
}

// NewSecretManager connects with application default credentials.
func NewSecretManager(ctx context.Context) (*SecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating secret manager client: %w", err)
	}
	return &SecretManager{client: client}, nil
}

// Access returns the payload of the named secret version.
func (s *SecretManager) Access(ctx context.Context, name string) ([]byte, error) {
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("accessing secret %s: %w", name, err)
	}
	if result.GetPayload() == nil {
		return nil, fmt.Errorf("secret %s has no payload", name)
	}
	return result.GetPayload().GetData(), nil
}

// Close releases the client connection.
func (s *SecretManager) Close() error {
	return s.client.Close()
}

// SecretVersionName resolves secret to a full version name. A bare secret
// ID needs a project and resolves to its latest version.
func SecretVersionName(project, secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	switch {
	case strings.HasPrefix(secret, "projects/") && strings.Contains(secret, "/versions/"):
		return secret, nil
	case strings.HasPrefix(secret, "projects/"):
		return secret + "/versions/latest", nil
	case project == "":
		return "", fmt.Errorf("%w: retailer.gcp_project is required for secret %q", common.ErrMissingConfig, secret)
	default:
		return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, secret), nil
	}
}

// RetailerCredentials is the JSON document stored in the secret.
type RetailerCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	StoreID  string `json:"store_id"`
}

// LoadRetailerCredentials fetches and decodes the credentials secret.
func LoadRetailerCredentials(ctx context.Context, secrets SecretAccessor, name string) (RetailerCredentials, error) {
	data, err := secrets.Access(ctx, name)
	if err != nil {
		return RetailerCredentials{}, err
	}
	var creds RetailerCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return RetailerCredentials{}, fmt.Errorf("parsing secret JSON: %w", err)
	}
	return creds, nil
}

// apply fills only the fields cfg leaves empty.
func (c RetailerCredentials) apply(cfg *retailer.Config) {
	if cfg.Username == "" {
		cfg.Username = c.Username
	}
	if cfg.Password == "" {
		cfg.Password = c.Password
	}
	if cfg.StoreID == "" {
		cfg.StoreID = c.StoreID
	}
}
