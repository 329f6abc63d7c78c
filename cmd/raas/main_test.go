package main

import (
	"bytes"
	"context"
	"os"
	"slices"
	"testing"

	"github.com/raasclient/raas/pkg/models"
	"github.com/raasclient/raas/pkg/providers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.Logger = zerolog.Nop()
}

func changedFlags(names ...string) func(string) bool {
	return func(name string) bool {
		return slices.Contains(names, name)
	}
}

func TestApply(t *testing.T) {
	for _, env := range []string{"RAAS_DATA_SERVICE_URL", "RAAS_REPORT_PATH", "RAAS_REPORT_ID", "RAAS_OUTPUT"} {
		t.Setenv(env, "")
	}
	config := &models.Configuration{
		DataServiceURL: "https://a.example.com",
		Report:         models.ReportRequest{Path: "/content/a"},
		Destination:    "a.csv",
		LogLevel:       "info",
	}

	s := &State{reportID: "i123", destination: "b.csv", logLevel: "debug"}
	require.NoError(t, s.apply(config, changedFlags("report-id")))

	assert.Equal(t, "https://a.example.com", config.DataServiceURL)
	assert.Equal(t, models.ReportRequest{ID: "i123"}, config.Report)
	assert.Equal(t, "b.csv", config.Destination)
	assert.Equal(t, "debug", config.LogLevel)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RAAS_DATA_SERVICE_URL", "https://b.example.com")
	t.Setenv("RAAS_REPORT_PATH", "/content/b")
	t.Setenv("RAAS_REPORT_ID", "")
	t.Setenv("RAAS_OUTPUT", "")

	config := &models.Configuration{
		DataServiceURL: "https://a.example.com",
		Report:         models.ReportRequest{ID: "i123"},
		Destination:    "a.csv",
	}
	require.NoError(t, (&State{}).apply(config, changedFlags()))

	assert.Equal(t, "https://b.example.com", config.DataServiceURL)
	assert.Equal(t, models.ReportRequest{Path: "/content/b"}, config.Report)
	assert.Equal(t, "a.csv", config.Destination)
}

func TestApplyFlagOverEnv(t *testing.T) {
	t.Setenv("RAAS_REPORT_PATH", "")
	t.Setenv("RAAS_REPORT_ID", "i-from-env")

	s := &State{}
	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&s.reportPath, "report-path", os.Getenv("RAAS_REPORT_PATH"), "")
	cmd.Flags().StringVar(&s.reportID, "report-id", os.Getenv("RAAS_REPORT_ID"), "")
	require.NoError(t, cmd.Flags().Parse([]string{"--report-path", "/content/cli"}))

	config := &models.Configuration{Report: models.ReportRequest{ID: "i-from-file"}}
	require.NoError(t, s.apply(config, cmd.Flags().Changed))
	assert.Equal(t, models.ReportRequest{Path: "/content/cli"}, config.Report)
}

func TestApplyConflictingEnv(t *testing.T) {
	t.Setenv("RAAS_REPORT_PATH", "/content/b")
	t.Setenv("RAAS_REPORT_ID", "i123")

	config := &models.Configuration{}
	err := (&State{}).apply(config, changedFlags())
	assert.EqualError(t, err, "RAAS_REPORT_PATH and RAAS_REPORT_ID are mutually exclusive")
}

func TestWriteExports(t *testing.T) {
	config := &models.Configuration{
		DataServiceURL: "https://a.example.com/services/BiDataService",
		Report:         models.ReportRequest{Path: "/content/report[@name='Headcount']"},
		Destination:    "./data/out.csv",
		Credentials: models.CredentialRefs{
			ClientAccessKey: models.SecretRef{Provider: "string", ID: "CUSTKEY"},
			Password:        models.SecretRef{Provider: "env", ID: "RAAS_PASSWORD"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeExports(&buf, "raas.yaml", config))
	assert.Equal(t, `export RAAS_CONFIG=raas.yaml
export RAAS_DATA_SERVICE_URL=https://a.example.com/services/BiDataService
export RAAS_REPORT_PATH='/content/report[@name='"'"'Headcount'"'"']'
export RAAS_OUTPUT=./data/out.csv
# client_access_key from 'string:<redacted>'
# password from env:RAAS_PASSWORD
`, buf.String())
	assert.NotContains(t, buf.String(), "CUSTKEY")
}

func TestResolveCredentials(t *testing.T) {
	resolver := providers.NewResolver().WithDefaultProviders()

	credentials, err := resolveCredentials(context.TODO(), resolver, models.CredentialRefs{
		ClientAccessKey: models.SecretRef{Provider: "string", ID: "CUSTKEY"},
		Token:           models.SecretRef{Provider: "string", ID: "tok"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.Credentials{ClientAccessKey: "CUSTKEY", Token: "tok"}, credentials)

	_, err = resolveCredentials(context.TODO(), resolver, models.CredentialRefs{
		ClientAccessKey: models.SecretRef{Provider: "string", ID: "CUSTKEY"},
	})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}
