package soap

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// SOAP 1.2 fault returned in place of a response body
type Fault struct {
	XMLName xml.Name `xml:"Fault"`
	Code    string   `xml:"Code>Value"`
	Subcode string   `xml:"Code>Subcode>Value"`
	Reason  string   `xml:"Reason>Text"`
	Detail  string   `xml:"Detail"`
}

func (f *Fault) Error() string {
	code := f.Code
	if f.Subcode != "" {
		code += "/" + f.Subcode
	}
	return fmt.Sprintf("soap fault %s: %s", code, strings.TrimSpace(f.Reason))
}

// Encode a fault response, used by the fake service
func MarshalFault(code, reason string) ([]byte, error) {
	type value struct {
		Value string `xml:"s:Value"`
	}
	type text struct {
		Lang  string `xml:"xml:lang,attr"`
		Value string `xml:",chardata"`
	}
	type fault struct {
		XMLName xml.Name `xml:"s:Fault"`
		Code    value    `xml:"s:Code"`
		Reason  struct {
			Text text `xml:"s:Text"`
		} `xml:"s:Reason"`
	}

	f := fault{Code: value{Value: code}}
	f.Reason.Text = text{Lang: "en-US", Value: reason}
	return MarshalResponse("http://www.w3.org/2005/08/addressing/soap/fault", nil, f)
}
