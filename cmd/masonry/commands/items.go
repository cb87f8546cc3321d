package commands

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/masonry/pkg/persist"
)

// stdinPath reads a JSON item list from standard input.
const stdinPath = "-"

// maxReportedSchemaErrors caps the schema errors quoted in one error message.
const maxReportedSchemaErrors = 3

//go:embed schema/items.schema.json
var itemsSchema []byte

// ErrInvalidItems is returned for item files that fail schema validation.
var ErrInvalidItems = errors.New("invalid item file")

// Item is one entry of an item file.
type Item struct {
	ID     string  `json:"id,omitempty" yaml:"id,omitempty"`
	Height float64 `json:"height"       yaml:"height"`
}

// ItemFile is the on-disk list of items to lay out.
type ItemFile struct {
	// Width is an optional container width; the --width flag wins.
	Width float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Items []Item  `json:"items"           yaml:"items"`
}

// Label returns the item ID, or its index when the ID is empty.
func (it Item) Label(index int) string {
	if it.ID != "" {
		return it.ID
	}

	return fmt.Sprintf("#%d", index)
}

// document is a decoded item file before schema validation.
type document struct {
	label string
	raw   []byte
	codec persist.Codec
	data  any
}

func readDocument(path string, stdin io.Reader) (*document, error) {
	doc := &document{label: path}

	var err error

	if path == stdinPath {
		doc.label = "<stdin>"
		doc.codec = persist.JSON
		doc.raw, err = io.ReadAll(stdin)
	} else {
		doc.codec, err = persist.CodecFor(path)
		if err != nil {
			return nil, err
		}

		doc.raw, err = os.ReadFile(path)
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", doc.label, err)
	}

	err = doc.codec.Decode(bytes.NewReader(doc.raw), &doc.data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", doc.label, err)
	}

	return doc, nil
}

// validate checks the document against the item schema.
func (d *document) validate() (*gojsonschema.Result, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(itemsSchema),
		gojsonschema.NewGoLoader(d.data),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	return result, nil
}

// loadItems reads, validates and decodes an item file.
func loadItems(path string, stdin io.Reader) (*ItemFile, error) {
	doc, err := readDocument(path, stdin)
	if err != nil {
		return nil, err
	}

	result, err := doc.validate()
	if err != nil {
		return nil, err
	}

	if !result.Valid() {
		return nil, fmt.Errorf("%w %s: %s", ErrInvalidItems, doc.label, summarizeSchemaErrors(result.Errors()))
	}

	file, err := persist.Read[ItemFile](doc.codec, bytes.NewReader(doc.raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", doc.label, err)
	}

	return file, nil
}

func summarizeSchemaErrors(errs []gojsonschema.ResultError) string {
	parts := make([]string, 0, min(len(errs), maxReportedSchemaErrors))

	for _, e := range errs[:min(len(errs), maxReportedSchemaErrors)] {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}

	if extra := len(errs) - len(parts); extra > 0 {
		parts = append(parts, fmt.Sprintf("and %d more", extra))
	}

	return strings.Join(parts, "; ")
}
