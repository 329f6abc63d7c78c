package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/raasclient/raas/pkg/models"
	"github.com/rs/zerolog/log"
)

type DataService interface {
	LogOn(ctx context.Context, credentials models.Credentials) (*models.DataContext, error)
	ExecuteReport(ctx context.Context, request models.ReportRequest, dataContext *models.DataContext) (*models.ReportResponse, error)
	LogOff(ctx context.Context, dataContext *models.DataContext) error
}

type StreamService interface {
	RetrieveReport(ctx context.Context, key string) (*models.StreamReportResponse, error)
	Close() error
}

// Opens a stream service at a retrieval URI
type StreamOpener func(uri string) (StreamService, error)

type Fetcher struct {
	Data       DataService
	OpenStream StreamOpener
	now        func() time.Time
}

// One report to fetch
type Job struct {
	Credentials models.Credentials
	Request     models.ReportRequest
	// File replaced with the report body
	Destination string
}

type Result struct {
	Destination string        `json:"destination"`
	Bytes       int64         `json:"bytes"`
	ReportKey   string        `json:"report_key"`
	Duration    time.Duration `json:"duration"`
}

func NewFetcher(data DataService, openStream StreamOpener) *Fetcher {
	return &Fetcher{
		Data:       data,
		OpenStream: openStream,
		now:        time.Now,
	}
}

// Log on, execute the report, stream it into the destination and log
// off. Logoff runs once logon succeeded, whatever happens afterwards;
// its failure is joined to any earlier one.
func (f *Fetcher) Fetch(ctx context.Context, job Job) (result *Result, err error) {
	start := f.now()
	if err := job.Request.Validate(); err != nil {
		return nil, err
	}
	if job.Destination == "" {
		return nil, fmt.Errorf("missing destination")
	}

	dataContext, err := f.logOn(ctx, job.Credentials)
	if err != nil {
		return nil, err
	}
	log.Info().Str("user", dataContext.UserName).Msg("logged on to BI data service")

	defer func() {
		// log off even when ctx was canceled by an earlier step
		if logOffErr := f.Data.LogOff(context.WithoutCancel(ctx), dataContext); logOffErr != nil {
			log.Error().Err(logOffErr).Msg("failed to log off BI data service")
			err = errors.Join(err, logOffErr)
			result = nil
			return
		}
		log.Debug().Msg("logged off BI data service")
	}()

	log.Info().Str("report", job.Request.Selector()).Msg("sending report request to BI data service")
	response, err := f.execute(ctx, job.Request, dataContext)
	if err != nil {
		return nil, err
	}

	log.Info().Str("destination", job.Destination).Msg("streaming report to file")
	n, err := f.retrieve(ctx, response, job.Destination)
	if err != nil {
		return nil, err
	}
	log.Info().Str("destination", job.Destination).Int64("bytes", n).Msg("streamed report to file")

	return &Result{
		Destination: job.Destination,
		Bytes:       n,
		ReportKey:   response.ReportKey,
		Duration:    f.now().Sub(start),
	}, nil
}

func (f *Fetcher) logOn(ctx context.Context, credentials models.Credentials) (*models.DataContext, error) {
	if credentials.Mode() == models.AuthModeToken {
		if expired, exp := models.TokenExpired(credentials.Token, f.now()); expired {
			log.Warn().Time("expiry", exp).Msg("bearer token is expired, logon will likely fail")
		}
	}

	dataContext, err := f.Data.LogOn(ctx, credentials)
	if err != nil {
		log.Error().Err(err).Msg("failed to log on to BI data service")
		return nil, err
	}
	if !dataContext.OK() {
		err := fmt.Errorf("%w: %s", ErrUnauthorized, dataContext.StatusMessage)
		log.Error().Str("status", string(dataContext.Status)).Str("message", dataContext.StatusMessage).
			Msg("failed to log on to BI data service")
		return nil, err
	}
	return dataContext, nil
}

func (f *Fetcher) execute(ctx context.Context, request models.ReportRequest, dataContext *models.DataContext) (*models.ReportResponse, error) {
	response, err := f.Data.ExecuteReport(ctx, request, dataContext)
	if err != nil {
		log.Error().Err(err).Msg("failed report request to BI data service")
		return nil, err
	}
	if response.Status != models.ReportRequestStatusSuccess {
		err := &ExecutionError{Status: string(response.Status), Message: response.StatusMessage}
		log.Error().Str("status", err.Status).Str("message", err.Message).Msg("failed report request to BI data service")
		return nil, err
	}
	return response, nil
}

func (f *Fetcher) retrieve(ctx context.Context, response *models.ReportResponse, destination string) (int64, error) {
	stream, err := f.OpenStream(response.ReportRetrievalURI)
	if err != nil {
		log.Error().Err(err).Str("uri", response.ReportRetrievalURI).Msg("failed to open BI stream service")
		return 0, err
	}
	defer stream.Close()

	body, err := stream.RetrieveReport(ctx, response.ReportKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to stream report from BI stream service")
		return 0, err
	}
	defer body.ReportStream.Close()

	if body.Status == models.ReportResponseStatusFailed {
		err := &RetrievalError{Message: body.StatusMessage}
		log.Error().Str("message", err.Message).Msg("failed to stream report from BI stream service")
		return 0, err
	}

	n, err := writeFile(destination, body.ReportStream)
	if err != nil {
		log.Error().Err(err).Str("destination", destination).Msg("failed to stream report to file")
		return 0, err
	}
	return n, nil
}

// Copy r into a temporary file next to path and rename it over path
// once complete
func writeFile(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return n, err
	}
	if err := tmp.Close(); err != nil {
		return n, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return n, err
	}
	return n, os.Rename(tmp.Name(), path)
}
