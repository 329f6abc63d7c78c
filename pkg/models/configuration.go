package models

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDataServiceURL = "https://service4.ultipro.com/services/BiDataService"
	DefaultDestination    = "./data/StreamOutput.csv"
	DefaultDelimiter      = ","
	DefaultTimeout        = 5 * time.Minute
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Client configuration
type Configuration struct {
	// BI data service endpoint used for logon, report execution and logoff
	DataServiceURL string `yaml:"data_service_url" validate:"required,url"`
	// Credential references, resolved by the secret providers
	Credentials CredentialRefs `yaml:"credentials"`
	// Report to execute
	Report ReportRequest `yaml:"report"`
	// File the report is written to, replaced on every run
	Destination string `yaml:"destination" validate:"required"`
	// Value of the US-DELIMITER header, selects delimited output instead of XML
	Delimiter string `yaml:"delimiter" validate:"len=1"`
	// Timeout applied to each call
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	// Log level (debug, info, warn, error)
	LogLevel string `yaml:"log_level" validate:"oneof=trace debug info warn error"`
}

type CredentialRefs struct {
	ClientAccessKey SecretRef `yaml:"client_access_key"`
	UserAccessKey   SecretRef `yaml:"user_access_key"`
	UserName        SecretRef `yaml:"username"`
	Password        SecretRef `yaml:"password"`
	Token           SecretRef `yaml:"token"`
}

// Load a YAML configuration file. An empty path yields the defaults.
func ReadConfiguration(path string) (*Configuration, error) {
	c := Configuration{}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		err = yaml.NewDecoder(f).Decode(&c)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode configuration %s: %w", path, err)
		}
	}

	if c.DataServiceURL == "" {
		c.DataServiceURL = os.Getenv("RAAS_DATA_SERVICE_URL")
	}
	if c.DataServiceURL == "" {
		c.DataServiceURL = DefaultDataServiceURL
	}

	if c.Destination == "" {
		c.Destination = DefaultDestination
	}

	if c.Delimiter == "" {
		c.Delimiter = DefaultDelimiter
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	return &c, nil
}

// Load KEY=value pairs from a .env file into the environment, keeping
// variables that are already set. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

func (c *Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Credential references that are set, named after their configuration key
func (r CredentialRefs) Secrets() []Secret {
	named := []struct {
		name string
		ref  SecretRef
	}{
		{"client_access_key", r.ClientAccessKey},
		{"user_access_key", r.UserAccessKey},
		{"username", r.UserName},
		{"password", r.Password},
		{"token", r.Token},
	}

	secrets := []Secret{}
	for _, n := range named {
		if n.ref.IsZero() {
			continue
		}
		secrets = append(secrets, Secret{Name: n.name, Ref: n.ref})
	}
	return secrets
}

// Build credentials from resolved secrets
func CredentialsFromSecrets(secrets []Secret) Credentials {
	c := Credentials{}
	for _, s := range secrets {
		switch s.Name {
		case "client_access_key":
			c.ClientAccessKey = s.Value
		case "user_access_key":
			c.UserAccessKey = s.Value
		case "username":
			c.UserName = s.Value
		case "password":
			c.Password = s.Value
		case "token":
			c.Token = s.Value
		}
	}
	return c
}
