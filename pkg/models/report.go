package models

import (
	"fmt"
	"io"
)

type ContextStatus string

const (
	ContextStatusOk     ContextStatus = "Ok"
	ContextStatusFailed ContextStatus = "Failed"
)

type ReportRequestStatus string

const (
	ReportRequestStatusSuccess ReportRequestStatus = "Success"
	ReportRequestStatusFailed  ReportRequestStatus = "Failed"
)

type ReportResponseStatus string

const (
	ReportResponseStatusCompleted ReportResponseStatus = "Completed"
	ReportResponseStatusWorking   ReportResponseStatus = "Working"
	ReportResponseStatusFailed    ReportResponseStatus = "Failed"
)

// Session state returned by a logon and echoed back on every
// session-scoped call until logoff
type DataContext struct {
	ClientAccessKey string        `xml:"ClientAccessKey" json:"-"`
	InstanceKey     string        `xml:"InstanceKey" json:"instance_key,omitempty"`
	ServiceID       string        `xml:"ServiceId" json:"service_id,omitempty"`
	SessionID       string        `xml:"SessionId" json:"-"`
	Status          ContextStatus `xml:"Status" json:"status"`
	StatusMessage   string        `xml:"StatusMessage" json:"status_message,omitempty"`
	Token           string        `xml:"Token" json:"-"`
	UserName        string        `xml:"UserName" json:"user_name,omitempty"`

	closed bool
}

func (c *DataContext) OK() bool {
	return c.Status == ContextStatusOk
}

// Mark the session as logged off, it must not be sent again
func (c *DataContext) Invalidate() {
	c.closed = true
}

func (c *DataContext) Closed() bool {
	return c.closed
}

// Name and value of a report prompt
type ReportParameter struct {
	Name  string `xml:"Name" json:"name" yaml:"name" validate:"required"`
	Value string `xml:"Value" json:"value" yaml:"value"`
}

// Selects the report to execute, by catalog path or by report ID.
// Both forms travel in the ReportPath element.
type ReportRequest struct {
	Path       string            `xml:"-" json:"path,omitempty" yaml:"path" validate:"required_without=ID,excluded_with=ID"`
	ID         string            `xml:"-" json:"id,omitempty" yaml:"id" validate:"required_without=Path"`
	Parameters []ReportParameter `xml:"-" json:"parameters,omitempty" yaml:"parameters" validate:"dive"`
}

// Value sent to the service as the report path
func (r ReportRequest) Selector() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Path
}

func (r ReportRequest) Validate() error {
	if (r.Path == "") == (r.ID == "") {
		return fmt.Errorf("exactly one of report path or report id is required")
	}
	return nil
}

type ReportResponse struct {
	ReportKey          string              `xml:"ReportKey" json:"report_key"`
	ReportRetrievalURI string              `xml:"ReportRetrievalUri" json:"report_retrieval_uri"`
	Status             ReportRequestStatus `xml:"Status" json:"status"`
	StatusMessage      string              `xml:"StatusMessage" json:"status_message,omitempty"`
}

type StreamReportResponse struct {
	Status        ReportResponseStatus
	StatusMessage string
	// Report body, must be closed by the caller
	ReportStream io.ReadCloser
}
