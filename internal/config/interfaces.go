package config

import "context"

// SecretProvider resolves secret references into plaintext values. SSM backs
// it in AWS; the environment backs it locally.
type SecretProvider interface {
	// GetParametersBatch returns a map of key -> plaintext value for every key
	// it could resolve. Implementations batch calls internally.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}

// NewSecretProvider returns an SSMProvider when region is set and an
// EnvVarProvider otherwise, so staging runs outside AWS can point
// *_SSM_PARAM variables at other environment variables.
func NewSecretProvider(region, endpoint string) SecretProvider {
	if region == "" {
		return NewEnvVarProvider()
	}
	return NewSSMProvider(region, endpoint)
}
