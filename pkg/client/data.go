package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/raasclient/raas/pkg/models"
)

var ErrSessionClosed = errors.New("session context is logged off")

// Client of the BI data service: logon, report execution and logoff
type DataClient struct {
	soapClient
	// Value of the delimiter header sent on session-scoped calls
	Delimiter string
}

func NewDataClient(client HTTPClient, url string) *DataClient {
	return &DataClient{
		soapClient: soapClient{
			HTTPClient: client,
			URL:        strings.TrimSuffix(url, "/"),
		},
		Delimiter: models.DefaultDelimiter,
	}
}

func (c *DataClient) WithTimeout(timeout time.Duration) *DataClient {
	c.Timeout = timeout
	return c
}

// Log on with whichever authentication mode the credentials carry
func (c *DataClient) LogOn(ctx context.Context, credentials models.Credentials) (*models.DataContext, error) {
	if err := credentials.Validate(); err != nil {
		return nil, err
	}
	if credentials.Mode() == models.AuthModeToken {
		return c.LogOnWithToken(ctx, credentials.Token, credentials.ClientAccessKey)
	}
	return c.LogOnWithPassword(ctx, credentials)
}

func (c *DataClient) LogOnWithPassword(ctx context.Context, credentials models.Credentials) (*models.DataContext, error) {
	var resp LogOnResponse
	err := c.call(ctx, ActionLogOn, nil, LogOn{
		Request: LogOnRequest{
			ClientAccessKey: credentials.ClientAccessKey,
			Password:        credentials.Password,
			UserAccessKey:   credentials.UserAccessKey,
			UserName:        credentials.UserName,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

func (c *DataClient) LogOnWithToken(ctx context.Context, token string, clientAccessKey string) (*models.DataContext, error) {
	var resp LogOnWithTokenResponse
	err := c.call(ctx, ActionLogOnWithToken, nil, LogOnWithToken{
		Request: LogOnWithTokenRequest{
			ClientAccessKey: clientAccessKey,
			Token:           token,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

func (c *DataClient) ExecuteReport(ctx context.Context, request models.ReportRequest, dataContext *models.DataContext) (*models.ReportResponse, error) {
	if dataContext.Closed() {
		return nil, ErrSessionClosed
	}

	var resp ExecuteReportResponse
	err := c.call(ctx, ActionExecuteReport, c.sessionHeader(), ExecuteReport{
		Request: newReportRequest(request),
		Context: *dataContext,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

// Log off and invalidate the context, also when the call fails
func (c *DataClient) LogOff(ctx context.Context, dataContext *models.DataContext) error {
	if dataContext.Closed() {
		return ErrSessionClosed
	}
	defer dataContext.Invalidate()

	var resp LogOffResponse
	err := c.call(ctx, ActionLogOff, c.sessionHeader(), LogOff{Context: *dataContext}, &resp)
	if err != nil {
		return fmt.Errorf("failed to log off: %w", err)
	}
	return nil
}

func (c *DataClient) Close() error {
	c.closeIdle()
	return nil
}

func (c *DataClient) sessionHeader() http.Header {
	h := http.Header{}
	if c.Delimiter != "" {
		h.Set(DelimiterHeader, c.Delimiter)
	}
	return h
}
