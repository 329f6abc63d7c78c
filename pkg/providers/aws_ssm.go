package providers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// SecureString parameters of the AWS Systems Manager parameter store
type SSMProvider struct {
	Client SSMClient
}

type SSMClient interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

func NewSSMProvider() *SSMProvider {
	return &SSMProvider{}
}

// GetParameters accepts at most 10 names per call
var batchSize = 10

func (p *SSMProvider) Read(ctx context.Context, ids map[string]string) (map[string]string, error) {
	err := p.configure(ctx)
	if err != nil {
		return nil, err
	}

	params := []string{}
	names := map[string][]string{}
	for name, param := range ids {
		if _, ok := names[param]; !ok {
			params = append(params, param)
		}
		names[param] = append(names[param], name)
	}

	result := map[string]string{}
	for i := 0; i < len(params); i += batchSize {
		end := min(i+batchSize, len(params))
		log.Debug().Int("parameters", end-i).Msg("get ssm parameters")
		resp, err := p.Client.GetParameters(ctx, &ssm.GetParametersInput{
			Names:          params[i:end],
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get ssm parameters: %w", err)
		}
		if len(resp.InvalidParameters) > 0 {
			return nil, fmt.Errorf("%w: invalid ssm parameters %v", ErrSecretNotFound, resp.InvalidParameters)
		}
		for _, param := range resp.Parameters {
			if param.Name == nil || param.Value == nil {
				continue
			}
			for _, name := range names[*param.Name] {
				result[name] = *param.Value
			}
		}
	}

	return result, nil
}

func (p *SSMProvider) configure(ctx context.Context) error {
	if p.Client != nil {
		return nil
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return err
	}
	p.Client = ssm.NewFromConfig(cfg)
	return nil
}
