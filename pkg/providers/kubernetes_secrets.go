package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	v1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

const namespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"

type KubernetesSecretsClient interface {
	GetSecret(ctx context.Context, namespace string, name string) (map[string][]byte, error)
}

// Keys of Kubernetes secrets, addressed as [namespace/]secret/key
type KubernetesSecretsProvider struct {
	Client    KubernetesSecretsClient
	Namespace string
}

type KubernetesClient struct {
	Client kubernetes.Interface
}

func (c *KubernetesClient) GetSecret(ctx context.Context, namespace string, name string) (map[string][]byte, error) {
	secret, err := c.Client.CoreV1().Secrets(namespace).Get(ctx, name, v1.GetOptions{})
	if err != nil {
		return nil, err
	}
	return secret.Data, nil
}

func NewKubernetesProvider() *KubernetesSecretsProvider {
	return &KubernetesSecretsProvider{}
}

type kubernetesKey struct {
	namespace string
	secret    string
	key       string
}

func (p *KubernetesSecretsProvider) Read(ctx context.Context, ids map[string]string) (map[string]string, error) {
	if err := p.configure(); err != nil {
		return nil, err
	}

	keys := map[string]kubernetesKey{}
	for name, id := range ids {
		k, err := p.parseID(id)
		if err != nil {
			return nil, err
		}
		keys[name] = k
	}

	// one request per secret
	fetched := map[[2]string]map[string][]byte{}
	result := map[string]string{}
	for name, k := range keys {
		ref := [2]string{k.namespace, k.secret}
		data, ok := fetched[ref]
		if !ok {
			var err error
			data, err = p.Client.GetSecret(ctx, k.namespace, k.secret)
			if err != nil {
				return nil, fmt.Errorf("failed to get kubernetes secret %s/%s: %w", k.namespace, k.secret, err)
			}
			log.Debug().Str("namespace", k.namespace).Str("secret", k.secret).Msg("got kubernetes secret")
			fetched[ref] = data
		}

		value, ok := data[k.key]
		if !ok {
			return nil, fmt.Errorf("%w: key %s in kubernetes secret %s/%s", ErrSecretNotFound, k.key, k.namespace, k.secret)
		}
		result[name] = string(value)
	}

	return result, nil
}

func (p *KubernetesSecretsProvider) parseID(id string) (kubernetesKey, error) {
	parts := strings.Split(id, "/")
	switch len(parts) {
	case 3:
		return kubernetesKey{namespace: parts[0], secret: parts[1], key: parts[2]}, nil
	case 2:
		return kubernetesKey{namespace: p.Namespace, secret: parts[0], key: parts[1]}, nil
	}
	return kubernetesKey{}, fmt.Errorf("invalid kubernetes secret id: %s", id)
}

func (p *KubernetesSecretsProvider) configure() error {
	if p.Client != nil {
		return nil
	}

	config, err := rest.InClusterConfig()
	if err != nil {
		return err
	}

	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return err
	}

	p.Client = &KubernetesClient{Client: client}
	p.Namespace = os.Getenv("KUBERNETES_POD_NAMESPACE")
	if p.Namespace == "" {
		ns, err := os.ReadFile(namespaceFile)
		if err == nil {
			p.Namespace = strings.TrimSpace(string(ns))
		} else {
			log.Debug().Msg("failed to obtain current kubernetes namespace, using default")
			p.Namespace = "default"
		}
	}

	return nil
}
