package server

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/raasclient/raas/pkg/models"
	"gopkg.in/yaml.v3"
)

// Fake service configuration
type Configuration struct {
	// IP address and port to listen on
	Listen string `yaml:"listen"`
	// Log level (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
	// Customer API key expected on every logon
	ClientAccessKey string `yaml:"client_access_key"`
	Users           []User `yaml:"users"`
	// Bearer tokens accepted by LogOnWithToken, mapped to a user name
	Tokens map[string]string `yaml:"tokens"`
	// Reports by path or ID
	Reports map[string]*Report `yaml:"reports"`
}

type User struct {
	UserName      string `yaml:"username"`
	Password      string `yaml:"password"`
	UserAccessKey string `yaml:"user_access_key"`
}

type Report struct {
	// Report body as comma separated values
	Content string `yaml:"content"`
	// Read the body from a file instead
	File string `yaml:"file"`
	// Forced ExecuteReport outcome, Success by default
	Status  models.ReportRequestStatus `yaml:"status"`
	Message string                     `yaml:"message"`
	// Forced RetrieveReport outcome, Completed by default
	RetrievalStatus  models.ReportResponseStatus `yaml:"retrieval_status"`
	RetrievalMessage string                      `yaml:"retrieval_message"`
}

func ReadConfiguration(path string) (*Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := Configuration{}
	err = yaml.NewDecoder(f).Decode(&c)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode configuration %s: %w", path, err)
	}

	if c.Listen == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3502"
		}
		c.Listen = "127.0.0.1:" + port
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Tokens == nil {
		c.Tokens = map[string]string{}
	}

	if c.Reports == nil {
		c.Reports = map[string]*Report{}
	}

	for name, report := range c.Reports {
		if report == nil {
			return nil, fmt.Errorf("report %s has no definition", name)
		}
		if report.File != "" {
			content, err := os.ReadFile(report.File)
			if err != nil {
				return nil, fmt.Errorf("failed to read report %s: %w", name, err)
			}
			report.Content = string(content)
		}
		if report.Status == "" {
			report.Status = models.ReportRequestStatusSuccess
		}
		if report.RetrievalStatus == "" {
			report.RetrievalStatus = models.ReportResponseStatusCompleted
		}
	}

	return &c, nil
}
