package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raasclient/raas/pkg/soap"
	"github.com/rs/zerolog/log"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type idleCloser interface {
	CloseIdleConnections()
}

// Largest error body read when the response is not a SOAP envelope
const maxErrorBody = 4096

type soapClient struct {
	HTTPClient
	URL     string
	Timeout time.Duration
}

func (c *soapClient) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return context.WithCancel(ctx)
}

// Send an envelope and return the response once its status is checked.
// The caller closes the body.
func (c *soapClient) post(ctx context.Context, action string, header http.Header, soapHeaders []any, body any) (*http.Response, error) {
	payload, err := soap.Marshal(action, c.URL, soapHeaders, body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", shortAction(action), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", fmt.Sprintf(`%s; action="%s"`, soap.ContentType, action))

	log.Debug().Str("action", shortAction(action)).Str("url", c.URL).Msg("soap request")
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

// Send an envelope and decode the response body into out
func (c *soapClient) call(ctx context.Context, action string, header http.Header, body any, out any) error {
	ctx, cancel := c.context(ctx)
	defer cancel()

	resp, err := c.post(ctx, action, header, nil, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := soap.Unmarshal(resp.Body, nil, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", shortAction(action), err)
	}
	return nil
}

func (c *soapClient) closeIdle() {
	if ic, ok := c.HTTPClient.(idleCloser); ok {
		ic.CloseIdleConnections()
	}
}

// Faults come back with a 500 status, anything else is reported with
// the start of the body
func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var fault *soap.Fault
	if err := soap.Unmarshal(bytes.NewReader(data), nil, &struct{}{}); errors.As(err, &fault) {
		return fault
	}
	return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}

func shortAction(action string) string {
	return action[strings.LastIndex(action, "/")+1:]
}
