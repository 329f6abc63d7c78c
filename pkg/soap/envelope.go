// Minimal SOAP 1.2 codec for WS-HTTP bindings with WS-Addressing
package soap

import (
	"bytes"
	"encoding/xml"
)

const (
	NamespaceEnvelope   = "http://www.w3.org/2003/05/soap-envelope"
	NamespaceAddressing = "http://www.w3.org/2005/08/addressing"
	ContentType         = "application/soap+xml; charset=utf-8"
)

type requestEnvelope struct {
	XMLName xml.Name      `xml:"s:Envelope"`
	S       string        `xml:"xmlns:s,attr"`
	A       string        `xml:"xmlns:a,attr"`
	Header  requestHeader `xml:"s:Header"`
	Body    requestBody   `xml:"s:Body"`
}

type requestHeader struct {
	Action addressingHeader `xml:"a:Action"`
	To     *addressingHeader `xml:"a:To,omitempty"`
	Extra  []any
}

type addressingHeader struct {
	MustUnderstand string `xml:"s:mustUnderstand,attr"`
	Value          string `xml:",chardata"`
}

type requestBody struct {
	Content any
}

// Encode an envelope addressed to endpoint. headers and body are
// marshaled with their own XMLName, extra headers follow Action and To.
func Marshal(action, endpoint string, headers []any, body any) ([]byte, error) {
	env := requestEnvelope{
		S: NamespaceEnvelope,
		A: NamespaceAddressing,
		Header: requestHeader{
			Action: addressingHeader{MustUnderstand: "1", Value: action},
			Extra:  headers,
		},
		Body: requestBody{Content: body},
	}
	if endpoint != "" {
		env.Header.To = &addressingHeader{MustUnderstand: "1", Value: endpoint}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode a response envelope, which carries no To header
func MarshalResponse(action string, headers []any, body any) ([]byte, error) {
	return Marshal(action, "", headers, body)
}
