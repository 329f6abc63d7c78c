package soap

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

var ErrNoBody = errors.New("soap envelope has no body")

// Reads an envelope incrementally, so large body elements can be
// streamed instead of buffered
type Decoder struct {
	r *bufio.Reader
	d *xml.Decoder
}

// xml.Decoder reads a bufio.Reader without buffering on its own, so Text
// can continue from the exact position reached by the token decoder
func NewDecoder(r io.Reader) *Decoder {
	br := bufio.NewReader(r)
	return &Decoder{r: br, d: xml.NewDecoder(br)}
}

// Decode the headers into v and return the first element of the body.
// A fault in the body is returned as a *Fault error. v may be nil.
func (d *Decoder) Open(v any) (xml.StartElement, error) {
	inBody := false
	for {
		tok, err := d.d.Token()
		if err == io.EOF {
			return xml.StartElement{}, ErrNoBody
		}
		if err != nil {
			return xml.StartElement{}, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch {
		case inBody && start.Name.Local == "Fault":
			fault := &Fault{}
			if err := d.d.DecodeElement(fault, &start); err != nil {
				return xml.StartElement{}, fmt.Errorf("failed to decode soap fault: %w", err)
			}
			return xml.StartElement{}, fault
		case inBody:
			return start, nil
		case start.Name.Local == "Header":
			if v == nil {
				if err := d.d.Skip(); err != nil {
					return xml.StartElement{}, err
				}
				continue
			}
			if err := d.d.DecodeElement(v, &start); err != nil {
				return xml.StartElement{}, fmt.Errorf("failed to decode soap header: %w", err)
			}
		case start.Name.Local == "Body":
			inBody = true
		}
	}
}

func (d *Decoder) DecodeElement(v any, start *xml.StartElement) error {
	return d.d.DecodeElement(v, start)
}

// Advance to the next child element named local inside the current
// element. Returns io.EOF when the current element ends first.
func (d *Decoder) Child(local string) (xml.StartElement, error) {
	for {
		tok, err := d.d.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == local {
				return t, nil
			}
			if err := d.d.Skip(); err != nil {
				return xml.StartElement{}, err
			}
		case xml.EndElement:
			return xml.StartElement{}, io.EOF
		}
	}
}

// Stream the character data of the element just opened by Child or Open,
// up to the next tag, reading the input as it goes. Whitespace is
// dropped, so it suits base64 content; entities, CDATA and nested
// elements are not interpreted. The Decoder must not be used afterwards.
func (d *Decoder) Text() io.Reader {
	return &textReader{r: d.r}
}

type textReader struct {
	r    *bufio.Reader
	done bool
}

func (t *textReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) && !t.done {
		if n > 0 && t.r.Buffered() == 0 {
			break
		}
		b, err := t.r.ReadByte()
		if err == io.EOF {
			return n, io.ErrUnexpectedEOF
		}
		if err != nil {
			return n, err
		}
		switch b {
		case '<':
			t.done = true
		case ' ', '\t', '\r', '\n':
		default:
			p[n] = b
			n++
		}
	}
	if n == 0 && t.done {
		return 0, io.EOF
	}
	return n, nil
}

// Decode a complete envelope: headers into header (may be nil) and the
// first body element into body
func Unmarshal(r io.Reader, header any, body any) error {
	d := NewDecoder(r)
	start, err := d.Open(header)
	if err != nil {
		return err
	}
	return d.DecodeElement(body, &start)
}
