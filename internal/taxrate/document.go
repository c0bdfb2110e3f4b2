package taxrate

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Default rates used when the document does not carry its own.
const (
	DefaultStatewideRate = 0.0625
	DefaultChicagoRate   = 0.0950
)

//go:embed illinois.json
var illinoisDocument []byte

// Document is the static tax data published for the resolver.
// DefaultRate and ChicagoRate are optional; zero means "use the built-in value".
type Document struct {
	ChicagoZIPs []string           `json:"chicagoZips"`
	ZIPToCounty map[string]string  `json:"zipToCounty"`
	CountyRates map[string]float64 `json:"countyRates"`
	DefaultRate float64            `json:"defaultRate,omitempty"`
	ChicagoRate float64            `json:"chicagoRate,omitempty"`
}

// DefaultDocumentBytes returns the embedded Illinois tax table.
func DefaultDocumentBytes() []byte {
	out := make([]byte, len(illinoisDocument))
	copy(out, illinoisDocument)
	return out
}

// ParseDocument decodes a tax document field by field. A field with the wrong
// shape is left empty and reported in the returned problems; only bytes that
// are not a JSON object at all produce an error.
func ParseDocument(data []byte) (Document, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, nil, fmt.Errorf("decode tax document: %w", err)
	}
	if raw == nil {
		return Document{}, nil, errors.New("decode tax document: empty document")
	}

	var (
		doc      Document
		problems []string
	)

	missing := func(name string) (json.RawMessage, bool) {
		msg, ok := raw[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: missing", name))
		}
		return msg, ok
	}

	if msg, ok := missing("chicagoZips"); ok {
		var zips []string
		if err := json.Unmarshal(msg, &zips); err != nil {
			problems = append(problems, fmt.Sprintf("chicagoZips: %v", err))
		} else {
			doc.ChicagoZIPs = zips
		}
	}
	if msg, ok := missing("zipToCounty"); ok {
		var m map[string]string
		if err := json.Unmarshal(msg, &m); err != nil {
			problems = append(problems, fmt.Sprintf("zipToCounty: %v", err))
		} else {
			doc.ZIPToCounty = m
		}
	}
	if msg, ok := missing("countyRates"); ok {
		var m map[string]float64
		if err := json.Unmarshal(msg, &m); err != nil {
			problems = append(problems, fmt.Sprintf("countyRates: %v", err))
		} else {
			doc.CountyRates = m
		}
	}

	// optional scalars
	if msg, ok := raw["defaultRate"]; ok {
		if err := json.Unmarshal(msg, &doc.DefaultRate); err != nil {
			problems = append(problems, fmt.Sprintf("defaultRate: %v", err))
			doc.DefaultRate = 0
		}
	}
	if msg, ok := raw["chicagoRate"]; ok {
		if err := json.Unmarshal(msg, &doc.ChicagoRate); err != nil {
			problems = append(problems, fmt.Sprintf("chicagoRate: %v", err))
			doc.ChicagoRate = 0
		}
	}

	return doc, problems, nil
}

// DefaultDocument parses the embedded Illinois table.
func DefaultDocument() Document {
	doc, _, err := ParseDocument(illinoisDocument)
	if err != nil {
		return Document{}
	}
	return doc
}
