package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raasclient/raas/pkg/models"
	"github.com/raasclient/raas/pkg/soap"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.Logger = zerolog.Nop()
}

type recorded struct {
	action    string
	delimiter string
	body      string
}

// Serves canned responses keyed by SOAP action
func soapServer(t *testing.T, responses map[string]func(w http.ResponseWriter)) (*httptest.Server, *[]recorded) {
	calls := []recorded{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		contentType := r.Header.Get("Content-Type")
		_, action, _ := strings.Cut(contentType, `action="`)
		action = strings.TrimSuffix(action, `"`)
		calls = append(calls, recorded{
			action:    action,
			delimiter: r.Header.Get(DelimiterHeader),
			body:      string(body),
		})

		respond, ok := responses[action]
		if !ok {
			t.Fatalf("unexpected action: %s", action)
		}
		w.Header().Set("Content-Type", soap.ContentType)
		respond(w)
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func envelope(t *testing.T, headers []any, body any) func(w http.ResponseWriter) {
	data, err := soap.MarshalResponse("urn:response", headers, body)
	require.NoError(t, err)
	return func(w http.ResponseWriter) {
		_, _ = w.Write(data)
	}
}

var okContext = models.DataContext{
	ClientAccessKey: "CUSTKEY",
	ServiceID:       "svc",
	SessionID:       "session-1",
	Status:          models.ContextStatusOk,
	UserName:        "svc-reports",
}

func TestLogOnPassword(t *testing.T) {
	ts, calls := soapServer(t, map[string]func(http.ResponseWriter){
		ActionLogOn: envelope(t, nil, LogOnResponse{Result: okContext}),
	})

	c := NewDataClient(ts.Client(), ts.URL+"/")
	dc, err := c.LogOn(context.TODO(), models.Credentials{
		ClientAccessKey: "CUSTKEY",
		UserAccessKey:   "USERKEY",
		UserName:        "svc-reports",
		Password:        "hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, okContext, *dc)
	assert.True(t, dc.OK())

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "", call.delimiter)
	assert.Contains(t, call.body, `<LogOn xmlns="`+DataNamespace+`"><logOnRequest>`)
	assert.Contains(t, call.body, `<UserName>svc-reports</UserName>`)
	assert.Contains(t, call.body, `<a:To s:mustUnderstand="1">`+ts.URL+`</a:To>`)
}

func TestLogOnToken(t *testing.T) {
	ts, calls := soapServer(t, map[string]func(http.ResponseWriter){
		ActionLogOnWithToken: envelope(t, nil, LogOnWithTokenResponse{Result: models.DataContext{
			Status:        models.ContextStatusFailed,
			StatusMessage: "Invalid token",
		}}),
	})

	c := NewDataClient(ts.Client(), ts.URL)
	dc, err := c.LogOn(context.TODO(), models.Credentials{ClientAccessKey: "CUSTKEY", Token: "tok"})
	require.NoError(t, err)
	assert.False(t, dc.OK())
	assert.Equal(t, "Invalid token", dc.StatusMessage)
	assert.Contains(t, (*calls)[0].body, `<Token>tok</Token>`)
}

func TestLogOnInvalidCredentials(t *testing.T) {
	c := NewDataClient(http.DefaultClient, "http://127.0.0.1:0")
	_, err := c.LogOn(context.TODO(), models.Credentials{ClientAccessKey: "CUSTKEY"})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestExecuteReportAndLogOff(t *testing.T) {
	ts, calls := soapServer(t, map[string]func(http.ResponseWriter){
		ActionExecuteReport: envelope(t, nil, ExecuteReportResponse{Result: models.ReportResponse{
			ReportKey:          "key-1",
			ReportRetrievalURI: "https://stream.example.com/services/BiStreamingService",
			Status:             models.ReportRequestStatusSuccess,
		}}),
		ActionLogOff: envelope(t, nil, LogOffResponse{}),
	})

	c := NewDataClient(ts.Client(), ts.URL)
	dc := okContext
	resp, err := c.ExecuteReport(context.TODO(), models.ReportRequest{
		Path:       "/content/report[@name='Headcount']",
		Parameters: []models.ReportParameter{{Name: "Company", Value: "ACME"}},
	}, &dc)
	require.NoError(t, err)
	assert.Equal(t, "key-1", resp.ReportKey)
	assert.Equal(t, "https://stream.example.com/services/BiStreamingService", resp.ReportRetrievalURI)

	require.NoError(t, c.LogOff(context.TODO(), &dc))
	assert.True(t, dc.Closed())

	require.Len(t, *calls, 2)
	for _, call := range *calls {
		assert.Equal(t, ",", call.delimiter, call.action)
		assert.Contains(t, call.body, "<SessionId>session-1</SessionId>")
	}
	assert.Contains(t, (*calls)[0].body, `<ReportPath>/content/report[@name=&#39;Headcount&#39;]</ReportPath>`)
	assert.Contains(t, (*calls)[0].body, `<ReportParameter><Name>Company</Name><Value>ACME</Value></ReportParameter>`)

	_, err = c.ExecuteReport(context.TODO(), models.ReportRequest{ID: "i1"}, &dc)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, c.LogOff(context.TODO(), &dc), ErrSessionClosed)
	assert.Len(t, *calls, 2)
}

func TestLogOffFailureInvalidates(t *testing.T) {
	ts, _ := soapServer(t, map[string]func(http.ResponseWriter){
		ActionLogOff: func(w http.ResponseWriter) {
			data, _ := soap.MarshalFault("s:Receiver", "internal error")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(data)
		},
	})

	c := NewDataClient(ts.Client(), ts.URL)
	dc := okContext
	err := c.LogOff(context.TODO(), &dc)
	var fault *soap.Fault
	assert.True(t, errors.As(err, &fault))
	assert.Equal(t, "failed to log off: soap fault s:Receiver: internal error", err.Error())
	assert.True(t, dc.Closed())
}

func TestUnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down\n"))
	}))
	defer ts.Close()

	c := NewDataClient(ts.Client(), ts.URL)
	_, err := c.LogOnWithToken(context.TODO(), "tok", "CUSTKEY")
	assert.EqualError(t, err, "unexpected status code: 502: upstream down")
}

func TestTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer ts.Close()

	c := NewDataClient(ts.Client(), ts.URL).WithTimeout(20 * time.Millisecond)
	_, err := c.LogOnWithToken(context.TODO(), "tok", "CUSTKEY")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func streamHeaders(status models.ReportResponseStatus, message string) []any {
	return []any{
		HeaderStatus{Value: status},
		HeaderStatusMessage{Value: message},
	}
}

func TestRetrieveReport(t *testing.T) {
	report := "a,b,c\n1,2,3\n"
	ts, calls := soapServer(t, map[string]func(http.ResponseWriter){
		ActionRetrieveReport: envelope(t,
			streamHeaders(models.ReportResponseStatusCompleted, ""),
			RetrieveReportResponse{ReportStream: base64.StdEncoding.EncodeToString([]byte(report))},
		),
	})

	c := NewStreamClient(ts.Client(), ts.URL)
	defer c.Close()
	resp, err := c.RetrieveReport(context.TODO(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportResponseStatusCompleted, resp.Status)

	body, err := io.ReadAll(resp.ReportStream)
	require.NoError(t, err)
	assert.Equal(t, report, string(body))
	assert.NoError(t, resp.ReportStream.Close())
	assert.NoError(t, c.Close())

	assert.Contains(t, (*calls)[0].body, `<ReportKey xmlns="`+StreamNamespace+`">key-1</ReportKey>`)
}

func TestRetrieveReportFailed(t *testing.T) {
	ts, _ := soapServer(t, map[string]func(http.ResponseWriter){
		ActionRetrieveReport: envelope(t,
			streamHeaders(models.ReportResponseStatusFailed, "Report key has expired"),
			RetrieveReportResponse{},
		),
	})

	c := NewStreamClient(ts.Client(), ts.URL)
	defer c.Close()
	resp, err := c.RetrieveReport(context.TODO(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportResponseStatusFailed, resp.Status)
	assert.Equal(t, "Report key has expired", resp.StatusMessage)

	body, err := io.ReadAll(resp.ReportStream)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestRetrieveReportLarge(t *testing.T) {
	report := strings.Repeat("id,name,value\n1,alpha,12.5\n", 2000)
	ts, _ := soapServer(t, map[string]func(http.ResponseWriter){
		ActionRetrieveReport: envelope(t,
			streamHeaders(models.ReportResponseStatusCompleted, ""),
			RetrieveReportResponse{ReportStream: base64.StdEncoding.EncodeToString([]byte(report))},
		),
	})

	c := NewStreamClient(ts.Client(), ts.URL)
	defer c.Close()
	resp, err := c.RetrieveReport(context.TODO(), "key-1")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.ReportStream)
	require.NoError(t, err)
	assert.Equal(t, report, string(body))
}

type trackedBody struct {
	r      io.Reader
	read   int
	closed bool
}

func (b *trackedBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.read += n
	return n, err
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

// Answers every request with a new body holding the same envelope
type fixedClient struct {
	envelope []byte
	bodies   []*trackedBody
}

func (c *fixedClient) Do(req *http.Request) (*http.Response, error) {
	body := &trackedBody{r: bytes.NewReader(c.envelope)}
	c.bodies = append(c.bodies, body)
	return &http.Response{StatusCode: http.StatusOK, Body: body, Request: req}, nil
}

func streamEnvelope(t *testing.T, report string) []byte {
	data, err := soap.MarshalResponse("urn:response",
		streamHeaders(models.ReportResponseStatusCompleted, ""),
		RetrieveReportResponse{ReportStream: base64.StdEncoding.EncodeToString([]byte(report))},
	)
	require.NoError(t, err)
	return data
}

func TestRetrieveReportStreamsBody(t *testing.T) {
	report := strings.Repeat("id,name,value\n1,alpha,12.5\n", 200000)
	hc := &fixedClient{envelope: streamEnvelope(t, report)}

	c := NewStreamClient(hc, "https://stream.example.com/services/BiStreamingService")
	defer c.Close()
	resp, err := c.RetrieveReport(context.TODO(), "key-1")
	require.NoError(t, err)

	buf := make([]byte, 16)
	_, err = io.ReadFull(resp.ReportStream, buf)
	require.NoError(t, err)
	assert.Equal(t, report[:16], string(buf))
	assert.Less(t, hc.bodies[0].read, 64<<10)

	rest, err := io.ReadAll(resp.ReportStream)
	require.NoError(t, err)
	assert.Equal(t, report[16:], string(rest))
}

func TestRetrieveReportClosesPreviousBody(t *testing.T) {
	hc := &fixedClient{envelope: streamEnvelope(t, "a,b\n")}

	c := NewStreamClient(hc, "https://stream.example.com/services/BiStreamingService")
	_, err := c.RetrieveReport(context.TODO(), "key-1")
	require.NoError(t, err)
	_, err = c.RetrieveReport(context.TODO(), "key-2")
	require.NoError(t, err)

	require.Len(t, hc.bodies, 2)
	assert.True(t, hc.bodies[0].closed)
	assert.False(t, hc.bodies[1].closed)

	assert.NoError(t, c.Close())
	assert.True(t, hc.bodies[1].closed)
}
