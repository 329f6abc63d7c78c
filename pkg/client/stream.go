package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/raasclient/raas/pkg/models"
	"github.com/raasclient/raas/pkg/soap"
)

// Client of the BI stream service at a retrieval URI issued by ExecuteReport
type StreamClient struct {
	soapClient
	body io.Closer
}

func NewStreamClient(client HTTPClient, uri string) *StreamClient {
	return &StreamClient{
		soapClient: soapClient{
			HTTPClient: client,
			URL:        uri,
		},
	}
}

func (c *StreamClient) WithTimeout(timeout time.Duration) *StreamClient {
	c.Timeout = timeout
	return c
}

// Retrieve a report body by key. Unless the status is Failed, the
// returned ReportStream decodes the body while it is read. A body
// returned by an earlier call is closed.
func (c *StreamClient) RetrieveReport(ctx context.Context, key string) (*models.StreamReportResponse, error) {
	if c.body != nil {
		_ = c.body.Close()
		c.body = nil
	}
	ctx, cancel := c.context(ctx)

	resp, err := c.post(ctx, ActionRetrieveReport, nil, []any{ReportKey{Value: key}}, RetrieveReportRequest{})
	if err != nil {
		cancel()
		return nil, err
	}
	body := &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	c.body = body

	var headers RetrieveReportHeaders
	d := soap.NewDecoder(resp.Body)
	_, err = d.Open(&headers)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("failed to decode RetrieveReport response: %w", err)
	}

	stream := &models.StreamReportResponse{
		Status:        headers.Status,
		StatusMessage: headers.StatusMessage,
	}
	if stream.Status == models.ReportResponseStatusFailed {
		body.Close()
		stream.ReportStream = http.NoBody
		return stream, nil
	}

	_, err = d.Child("ReportStream")
	if errors.Is(err, io.EOF) {
		body.Close()
		stream.ReportStream = http.NoBody
		return stream, nil
	}
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("failed to decode RetrieveReport response: %w", err)
	}

	stream.ReportStream = &reportStream{
		Reader: base64.NewDecoder(base64.StdEncoding, d.Text()),
		Closer: body,
	}
	return stream, nil
}

// Release the retrieval connection, safe to call more than once
func (c *StreamClient) Close() error {
	var err error
	if c.body != nil {
		err = c.body.Close()
		c.body = nil
	}
	c.closeIdle()
	return err
}

type reportStream struct {
	io.Reader
	io.Closer
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
	closed bool
}

func (b *cancelBody) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	defer b.cancel()
	return b.ReadCloser.Close()
}
