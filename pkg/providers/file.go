package providers

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Secrets stored one per file, such as mounted tokens
type FileProvider struct{}

func NewFileProvider() *FileProvider {
	return &FileProvider{}
}

func (p *FileProvider) Read(ctx context.Context, ids map[string]string) (map[string]string, error) {
	result := make(map[string]string)
	for name, path := range ids {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from file: %w", name, err)
		}
		result[name] = strings.TrimRight(string(content), "\r\n")
	}
	return result, nil
}
