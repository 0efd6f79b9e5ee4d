package codec

import (
	"encoding/json"
	"io"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/errors"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports graph data from JSON. Unknown fields are rejected.
func (c *JSONCodec) Parse(r io.Reader) (*domain.GraphFragment, error) {
	fragment := domain.NewGraphFragment()
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(fragment); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to parse JSON"), ErrMalformed)
	}

	return fragment, nil
}

// Export exports graph data to JSON
func (c *JSONCodec) Export(fragment *domain.GraphFragment, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(fragment); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}

	return nil
}
