package client

import (
	"encoding/xml"

	"github.com/raasclient/raas/pkg/models"
)

const (
	DataNamespace   = "http://www.ultipro.com/dataservices/bidata/2"
	StreamNamespace = "http://www.ultipro.com/dataservices/bistream/2"

	ActionLogOn          = DataNamespace + "/IBIDataService/LogOn"
	ActionLogOnWithToken = DataNamespace + "/IBIDataService/LogOnWithToken"
	ActionExecuteReport  = DataNamespace + "/IBIDataService/ExecuteReport"
	ActionLogOff         = DataNamespace + "/IBIDataService/LogOff"
	ActionRetrieveReport = StreamNamespace + "/IBIStreamService/RetrieveReport"

	// Requests delimited text instead of the default XML report format
	DelimiterHeader = "US-DELIMITER"
)

type LogOn struct {
	XMLName xml.Name     `xml:"http://www.ultipro.com/dataservices/bidata/2 LogOn"`
	Request LogOnRequest `xml:"logOnRequest"`
}

type LogOnRequest struct {
	ClientAccessKey string `xml:"ClientAccessKey"`
	Password        string `xml:"Password"`
	UserAccessKey   string `xml:"UserAccessKey"`
	UserName        string `xml:"UserName"`
}

type LogOnResponse struct {
	XMLName xml.Name           `xml:"http://www.ultipro.com/dataservices/bidata/2 LogOnResponse"`
	Result  models.DataContext `xml:"LogOnResult"`
}

type LogOnWithToken struct {
	XMLName xml.Name              `xml:"http://www.ultipro.com/dataservices/bidata/2 LogOnWithToken"`
	Request LogOnWithTokenRequest `xml:"logOnRequest"`
}

type LogOnWithTokenRequest struct {
	ClientAccessKey string `xml:"ClientAccessKey"`
	Token           string `xml:"Token"`
}

type LogOnWithTokenResponse struct {
	XMLName xml.Name           `xml:"http://www.ultipro.com/dataservices/bidata/2 LogOnWithTokenResponse"`
	Result  models.DataContext `xml:"LogOnWithTokenResult"`
}

type ExecuteReport struct {
	XMLName xml.Name           `xml:"http://www.ultipro.com/dataservices/bidata/2 ExecuteReport"`
	Request ReportRequest      `xml:"request"`
	Context models.DataContext `xml:"context"`
}

type ReportRequest struct {
	ReportParameters []models.ReportParameter `xml:"ReportParameters>ReportParameter"`
	ReportPath       string                   `xml:"ReportPath"`
}

type ExecuteReportResponse struct {
	XMLName xml.Name              `xml:"http://www.ultipro.com/dataservices/bidata/2 ExecuteReportResponse"`
	Result  models.ReportResponse `xml:"ExecuteReportResult"`
}

type LogOff struct {
	XMLName xml.Name           `xml:"http://www.ultipro.com/dataservices/bidata/2 LogOff"`
	Context models.DataContext `xml:"context"`
}

type LogOffResponse struct {
	XMLName xml.Name `xml:"http://www.ultipro.com/dataservices/bidata/2 LogOffResponse"`
}

// Header carrying the key of the report to retrieve
type ReportKey struct {
	XMLName xml.Name `xml:"http://www.ultipro.com/dataservices/bistream/2 ReportKey"`
	Value   string   `xml:",chardata"`
}

type RetrieveReportRequest struct {
	XMLName xml.Name `xml:"http://www.ultipro.com/dataservices/bistream/2 RetrieveReportRequest"`
}

// Headers of a RetrieveReport response, the body holds the base64 ReportStream
type RetrieveReportHeaders struct {
	Status        models.ReportResponseStatus `xml:"Status"`
	StatusMessage string                      `xml:"StatusMessage"`
}

type HeaderStatus struct {
	XMLName xml.Name                    `xml:"http://www.ultipro.com/dataservices/bistream/2 Status"`
	Value   models.ReportResponseStatus `xml:",chardata"`
}

type HeaderStatusMessage struct {
	XMLName xml.Name `xml:"http://www.ultipro.com/dataservices/bistream/2 StatusMessage"`
	Value   string   `xml:",chardata"`
}

type RetrieveReportResponse struct {
	XMLName      xml.Name `xml:"http://www.ultipro.com/dataservices/bistream/2 RetrieveReportResponse"`
	ReportStream string   `xml:"ReportStream"`
}

func newReportRequest(r models.ReportRequest) ReportRequest {
	return ReportRequest{
		ReportParameters: r.Parameters,
		ReportPath:       r.Selector(),
	}
}
