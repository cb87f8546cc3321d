// Package persist reads and writes item lists, layout dumps and config as
// JSON or YAML.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned when no codec matches a name or extension.
var ErrUnknownFormat = errors.New("unknown file format")

// Codec serializes values in one document format. Decoding rejects fields
// the target type does not declare, so typos in hand-written files surface.
type Codec interface {
	Name() string
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
}

// Codecs shared by the CLI and the server. Both pretty-print.
var (
	JSON Codec = jsonCodec{indent: "  "}
	YAML Codec = yamlCodec{indent: 2}
)

// extensions maps lower-cased file extensions and format names to codecs.
var extensions = map[string]Codec{
	".json": JSON,
	".yaml": YAML,
	".yml":  YAML,
}

type jsonCodec struct{ indent string }

func (jsonCodec) Name() string { return "json" }

func (c jsonCodec) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", c.indent)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

func (jsonCodec) Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

type yamlCodec struct{ indent int }

func (yamlCodec) Name() string { return "yaml" }

func (c yamlCodec) Encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(c.indent)

	if err := errors.Join(enc.Encode(v), enc.Close()); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	return nil
}

func (yamlCodec) Decode(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("yaml decode: %w", err)
	}

	return nil
}

// ByName returns the codec for a format name such as "json" or "yml".
func ByName(name string) (Codec, error) {
	if c, ok := extensions["."+strings.ToLower(name)]; ok {
		return c, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// CodecFor picks a codec from the extension of path.
func CodecFor(path string) (Codec, error) {
	if c, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return c, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// Read decodes one T from r.
func Read[T any](c Codec, r io.Reader) (*T, error) {
	var v T

	if err := c.Decode(r, &v); err != nil {
		return nil, err
	}

	return &v, nil
}
