package models

import (
	"encoding/json"
	"io"
)

func JSONEncoder(w io.Writer) *json.Encoder {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	// report paths are XPath-like and contain '&' and quotes
	e.SetEscapeHTML(false)
	return e
}
