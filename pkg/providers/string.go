package providers

import (
	"context"
)

// Literal values written inline in the configuration
type StringProvider struct{}

func NewStringProvider() *StringProvider {
	return &StringProvider{}
}

func (p *StringProvider) Read(ctx context.Context, ids map[string]string) (map[string]string, error) {
	return ids, nil
}
