// raas cli
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"al.essio.dev/pkg/shellescape"
	"github.com/raasclient/raas/pkg/client"
	"github.com/raasclient/raas/pkg/models"
	"github.com/raasclient/raas/pkg/providers"
	"github.com/raasclient/raas/pkg/report"
	"github.com/raasclient/raas/pkg/static"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type State struct {
	configPath  string
	dataURL     string
	reportPath  string
	reportID    string
	destination string
	logLevel    string
	json        bool

	config *models.Configuration
}

var state State

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("github.com/raasclient/raas@%s (%s)\n", static.Version, static.Commit)
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Execute a report and stream it to a file",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return state.prepare(cmd.Flags().Changed)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		credentials, err := resolveCredentials(ctx, providers.NewResolver().WithDefaultProviders(), state.config.Credentials)
		if err != nil {
			return err
		}

		data := client.NewDataClient(http.DefaultClient, state.config.DataServiceURL).
			WithTimeout(state.config.Timeout)
		data.Delimiter = state.config.Delimiter
		defer data.Close()

		fetcher := report.NewFetcher(data, func(uri string) (report.StreamService, error) {
			return client.NewStreamClient(http.DefaultClient, uri).WithTimeout(state.config.Timeout), nil
		})

		result, err := fetcher.Fetch(ctx, report.Job{
			Credentials: credentials,
			Request:     state.config.Report,
			Destination: state.config.Destination,
		})
		if err != nil {
			return err
		}

		if state.json {
			return models.JSONEncoder(os.Stdout).Encode(result)
		}
		return nil
	},
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the effective settings in ENV format",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return state.prepare(cmd.Flags().Changed)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeExports(os.Stdout, state.configPath, state.config)
	},
}

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	rootCmd := &cobra.Command{
		Use:           "raas",
		Long:          `raas cli`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(envCmd)

	for _, cmd := range []*cobra.Command{fetchCmd, envCmd} {
		cmd.Flags().StringVarP(&state.configPath,
			"config", "c", os.Getenv("RAAS_CONFIG"),
			"Path to the configuration file (env: RAAS_CONFIG)")

		cmd.Flags().StringVar(&state.dataURL,
			"data-service-url", os.Getenv("RAAS_DATA_SERVICE_URL"),
			"Override the BI data service URL (env: RAAS_DATA_SERVICE_URL)")

		cmd.Flags().StringVar(&state.reportPath,
			"report-path", os.Getenv("RAAS_REPORT_PATH"),
			"Catalog path of the report (env: RAAS_REPORT_PATH)")

		cmd.Flags().StringVar(&state.reportID,
			"report-id", os.Getenv("RAAS_REPORT_ID"),
			"ID of the report (env: RAAS_REPORT_ID)")

		cmd.Flags().StringVarP(&state.destination,
			"output", "o", os.Getenv("RAAS_OUTPUT"),
			"File the report is written to (env: RAAS_OUTPUT)")

		cmd.Flags().StringVar(&state.logLevel,
			"log-level", "",
			"Override the log level")

		cmd.MarkFlagsMutuallyExclusive("report-path", "report-id")
	}

	fetchCmd.Flags().BoolVar(&state.json, "json", false, "Print the result in JSON format")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Send()
		os.Exit(1)
	}
}

func (s *State) prepare(changed func(name string) bool) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := models.LoadDotEnv(cwd); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	config, err := models.ReadConfiguration(s.configPath)
	if err != nil {
		return err
	}
	if err := s.apply(config, changed); err != nil {
		return err
	}

	if err := config.Validate(); err != nil {
		return err
	}

	level, _ := zerolog.ParseLevel(config.LogLevel)
	log.Logger = log.Logger.Level(level)

	s.config = config
	return nil
}

// Flags and their env variables take precedence over the file. The env
// is read again so variables loaded from .env apply too. A report flag set
// on the command line wins over the env variable of the other selector.
func (s *State) apply(config *models.Configuration, changed func(name string) bool) error {
	if v := flagOrEnv(s.dataURL, "RAAS_DATA_SERVICE_URL"); v != "" {
		config.DataServiceURL = v
	}

	path, id := s.reportPath, s.reportID
	switch {
	case changed("report-path"):
		id = ""
	case changed("report-id"):
		path = ""
	default:
		path = flagOrEnv(path, "RAAS_REPORT_PATH")
		id = flagOrEnv(id, "RAAS_REPORT_ID")
		if path != "" && id != "" {
			return fmt.Errorf("RAAS_REPORT_PATH and RAAS_REPORT_ID are mutually exclusive")
		}
	}
	if path != "" {
		config.Report.Path = path
		config.Report.ID = ""
	}
	if id != "" {
		config.Report.ID = id
		config.Report.Path = ""
	}

	if v := flagOrEnv(s.destination, "RAAS_OUTPUT"); v != "" {
		config.Destination = v
	}
	if s.logLevel != "" {
		config.LogLevel = s.logLevel
	}
	return nil
}

func flagOrEnv(value, env string) string {
	if value != "" {
		return value
	}
	return os.Getenv(env)
}

func resolveCredentials(ctx context.Context, resolver *providers.Resolver, refs models.CredentialRefs) (models.Credentials, error) {
	secrets, err := resolver.Resolve(ctx, refs.Secrets())
	if err != nil {
		return models.Credentials{}, err
	}
	credentials := models.CredentialsFromSecrets(secrets)
	if err := credentials.Validate(); err != nil {
		return models.Credentials{}, err
	}
	return credentials, nil
}

// Settings without secrets, as exports read back by the flags
func writeExports(w io.Writer, configPath string, config *models.Configuration) error {
	exports := [][2]string{
		{"RAAS_CONFIG", configPath},
		{"RAAS_DATA_SERVICE_URL", config.DataServiceURL},
		{"RAAS_REPORT_PATH", config.Report.Path},
		{"RAAS_REPORT_ID", config.Report.ID},
		{"RAAS_OUTPUT", config.Destination},
	}
	for _, e := range exports {
		if e[1] == "" {
			continue
		}
		_, err := fmt.Fprintf(w, "export %s=%s\n", e[0], shellescape.Quote(e[1]))
		if err != nil {
			return err
		}
	}

	for _, secret := range config.Credentials.Secrets() {
		_, err := fmt.Fprintf(w, "# %s from %s\n", secret.Name, shellescape.Quote(secret.Ref.String()))
		if err != nil {
			return err
		}
	}
	return nil
}
