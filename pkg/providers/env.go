package providers

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
)

type EnvProvider struct {
	LookupEnv func(string) (string, bool)
}

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{
		LookupEnv: os.LookupEnv,
	}
}

// Unset variables are left out of the result, empty ones are kept
func (p *EnvProvider) Read(ctx context.Context, ids map[string]string) (map[string]string, error) {
	result := make(map[string]string)
	for name, env := range ids {
		value, ok := p.LookupEnv(env)
		if !ok {
			log.Warn().Str("secret", name).Str("env", env).Msg("env variable is not set")
			continue
		}
		if value == "" {
			log.Warn().Str("secret", name).Str("env", env).Msg("env variable is empty")
		}
		result[name] = value
	}
	return result, nil
}
