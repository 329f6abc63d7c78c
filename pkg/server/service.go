package server

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/raasclient/raas/pkg/client"
	"github.com/raasclient/raas/pkg/models"
)

var ErrInvalidSession = errors.New("invalid session")

// One request received by the fake service
type Call struct {
	Action    string
	Delimiter string
	SessionID string
}

type issuedReport struct {
	report    *Report
	delimiter string
}

// In-memory state of the fake BI data and stream services
type Service struct {
	Configuration *Configuration

	mu       sync.Mutex
	sessions map[string]string
	keys     map[string]issuedReport
	calls    []Call
}

func NewService(config *Configuration) *Service {
	return &Service{
		Configuration: config,
		sessions:      map[string]string{},
		keys:          map[string]issuedReport{},
	}
}

func (s *Service) record(call Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

// Requests received so far, in order
func (s *Service) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Number of sessions logged on and not yet logged off
func (s *Service) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Service) LogOn(req client.LogOnRequest) models.DataContext {
	if req.ClientAccessKey != s.Configuration.ClientAccessKey {
		return failedContext("Invalid client access key")
	}
	for _, u := range s.Configuration.Users {
		if u.UserName == req.UserName && u.Password == req.Password && u.UserAccessKey == req.UserAccessKey {
			return s.open(u.UserName, req.ClientAccessKey, "")
		}
	}
	return failedContext("Invalid user name, password or user access key")
}

func (s *Service) LogOnWithToken(req client.LogOnWithTokenRequest) models.DataContext {
	if req.ClientAccessKey != s.Configuration.ClientAccessKey {
		return failedContext("Invalid client access key")
	}
	user, ok := s.Configuration.Tokens[req.Token]
	if !ok {
		return failedContext("Invalid token")
	}
	return s.open(user, req.ClientAccessKey, req.Token)
}

func (s *Service) open(user, clientAccessKey, token string) models.DataContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.sessions[id] = user
	return models.DataContext{
		ClientAccessKey: clientAccessKey,
		InstanceKey:     uuid.New().String(),
		ServiceID:       "fake-raas",
		SessionID:       id,
		Status:          models.ContextStatusOk,
		Token:           token,
		UserName:        user,
	}
}

func failedContext(message string) models.DataContext {
	return models.DataContext{
		Status:        models.ContextStatusFailed,
		StatusMessage: message,
	}
}

// Execute a report for an open session and issue a single-use key.
// streamURI is returned as the retrieval address.
func (s *Service) ExecuteReport(req client.ReportRequest, dc models.DataContext, delimiter, streamURI string) models.ReportResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[dc.SessionID]; !ok {
		return models.ReportResponse{Status: models.ReportRequestStatusFailed, StatusMessage: "Invalid session"}
	}

	report, ok := s.Configuration.Reports[req.ReportPath]
	if !ok {
		return models.ReportResponse{
			Status:        models.ReportRequestStatusFailed,
			StatusMessage: "Report not found: " + req.ReportPath,
		}
	}
	if report.Status != models.ReportRequestStatusSuccess {
		return models.ReportResponse{Status: report.Status, StatusMessage: report.Message}
	}

	key := uuid.New().String()
	s.keys[key] = issuedReport{report: report, delimiter: delimiter}
	return models.ReportResponse{
		ReportKey:          key,
		ReportRetrievalURI: streamURI,
		Status:             models.ReportRequestStatusSuccess,
	}
}

func (s *Service) LogOff(dc models.DataContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[dc.SessionID]; !ok {
		return ErrInvalidSession
	}
	delete(s.sessions, dc.SessionID)
	return nil
}

// Render the report issued under key; the key is spent either way
func (s *Service) RetrieveReport(key string) (models.ReportResponseStatus, string, []byte) {
	s.mu.Lock()
	issued, ok := s.keys[key]
	delete(s.keys, key)
	s.mu.Unlock()

	if !ok {
		return models.ReportResponseStatusFailed, "Report key not found", nil
	}
	if issued.report.RetrievalStatus != models.ReportResponseStatusCompleted {
		return issued.report.RetrievalStatus, issued.report.RetrievalMessage, nil
	}

	body, err := render(issued.report.Content, issued.delimiter)
	if err != nil {
		return models.ReportResponseStatusFailed, err.Error(), nil
	}
	return models.ReportResponseStatusCompleted, "", body
}

type dataset struct {
	XMLName xml.Name `xml:"dataset"`
	Rows    []row    `xml:"row"`
}

type row struct {
	Values []value `xml:"value"`
}

type value struct {
	Name string `xml:"name,attr"`
	Text string `xml:",chardata"`
}

// Re-encode comma separated content with the requested delimiter, or as
// XML when no delimiter was requested. Output follows encoding/csv, so
// quoting and line endings are normalized rather than byte-identical to
// the configured content.
func render(content, delimiter string) ([]byte, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if delimiter == "" {
		ds := dataset{}
		for i, record := range records {
			if i == 0 {
				continue
			}
			rw := row{}
			for j, field := range record {
				name := ""
				if j < len(records[0]) {
					name = records[0][j]
				}
				rw.Values = append(rw.Values, value{Name: name, Text: field})
			}
			ds.Rows = append(ds.Rows, rw)
		}
		buf.WriteString(xml.Header)
		err := xml.NewEncoder(&buf).Encode(ds)
		return buf.Bytes(), err
	}

	w := csv.NewWriter(&buf)
	w.Comma = []rune(delimiter)[0]
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
