package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/raasclient/raas/pkg/models"
	"github.com/rs/zerolog/log"
)

var ErrSecretNotFound = errors.New("secret not found")

// Reads secrets from one backend. ids maps a secret name to the
// provider-specific id; the result maps the same names to their values.
type SecretProvider interface {
	Read(ctx context.Context, ids map[string]string) (map[string]string, error)
}

type Resolver struct {
	providers map[string]SecretProvider
}

func NewResolver() *Resolver {
	return &Resolver{
		providers: map[string]SecretProvider{},
	}
}

func (r *Resolver) WithDefaultProviders() *Resolver {
	r.Add("string", NewStringProvider())
	r.Add("env", NewEnvProvider())
	r.Add("file", NewFileProvider())
	r.Add("aws.ssm", NewSSMProvider())
	r.Add("kubernetes.secret", NewKubernetesProvider())
	return r
}

func (r *Resolver) Add(id string, provider SecretProvider) {
	r.providers[id] = provider
}

// Resolve every secret, failing on the first one that cannot be read.
// Secrets are grouped so each provider is called once.
func (r *Resolver) Resolve(ctx context.Context, secrets []models.Secret) ([]models.Secret, error) {
	byProvider := map[string]map[string]string{}
	for _, s := range secrets {
		if _, ok := r.providers[s.Ref.Provider]; !ok {
			return nil, fmt.Errorf("unknown secret provider %q for %s", s.Ref.Provider, s.Name)
		}
		if byProvider[s.Ref.Provider] == nil {
			byProvider[s.Ref.Provider] = map[string]string{}
		}
		byProvider[s.Ref.Provider][s.Name] = s.Ref.ID
	}

	values := map[string]string{}
	for id, names := range byProvider {
		log.Debug().Str("provider", id).Int("secrets", len(names)).Msg("reading secrets")
		read, err := r.providers[id].Read(ctx, names)
		if err != nil {
			return nil, fmt.Errorf("failed to read secrets from %s: %w", id, err)
		}
		for name, value := range read {
			values[name] = value
		}
	}

	resolved := make([]models.Secret, 0, len(secrets))
	for _, s := range secrets {
		value, ok := values[s.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s (%s)", ErrSecretNotFound, s.Name, s.Ref)
		}
		resolved = append(resolved, s.Resolve(value))
	}

	return resolved, nil
}
