// Package batchio reads and writes record batch documents. A document holds
// one list of records:
//
//	records:
//	  - {offset: 0, size: 100, path: /tsA}
//	  - {offset: 100, size: 50, path: /tsB}
//
// in YAML, JSON or CBOR.
package batchio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/h5compound/compound"
)

// Format is a document encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
	CBOR Format = "cbor"
)

var ErrUnknownFormat = errors.New("unknown batch format")

// encMode writes deterministic CBOR so equal batches give equal bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("batchio: CBOR encoder initialization failed: " + err.Error())
	}
}

type document struct {
	Records []compound.Entry `json:"records" yaml:"records" cbor:"records"`
}

// ParseFormat accepts yaml, yml, json and cbor in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatOf picks the format from a file extension, defaulting to YAML.
func FormatOf(path string) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return YAML
}

// Decode reads one document. An empty input is an empty batch.
func Decode(r io.Reader, f Format) ([]compound.Entry, error) {
	var doc document
	var err error
	switch f {
	case YAML:
		err = yaml.NewDecoder(r).Decode(&doc)
	case JSON:
		err = json.NewDecoder(r).Decode(&doc)
	case CBOR:
		err = cbor.NewDecoder(r).Decode(&doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding %s batch: %w", f, err)
	}
	if doc.Records == nil {
		doc.Records = []compound.Entry{}
	}
	return doc.Records, nil
}

// Encode writes entries as one document.
func Encode(w io.Writer, f Format, entries []compound.Entry) error {
	doc := document{Records: entries}
	if doc.Records == nil {
		doc.Records = []compound.Entry{}
	}
	switch f {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case CBOR:
		return encMode.NewEncoder(w).Encode(doc)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}
