// Package codec reads and writes graph fragments in file formats.
package codec

import (
	"io"
	"path/filepath"
	"sort"
	"strings"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/errors"
)

// Sentinels for documents the registry cannot handle.
var (
	ErrUnknownFormat = errors.New("unknown format")
	ErrMalformed     = errors.New("malformed graph document")
)

// Importer interface for importing graph data from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.GraphFragment, error)
	Format() string
}

// Exporter interface for exporting graph data to various formats
type Exporter interface {
	Export(fragment *domain.GraphFragment, w io.Writer) error
	Format() string
}

// Registry looks codecs up by format name or file extension.
type Registry struct {
	importers map[string]Importer
	exporters map[string]Exporter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		importers: make(map[string]Importer),
		exporters: make(map[string]Exporter),
	}
}

// DefaultRegistry knows json, yaml and png (export only).
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterImporter(NewJSONCodec())
	r.RegisterExporter(NewJSONCodec())
	r.RegisterImporter(NewYAMLCodec())
	r.RegisterExporter(NewYAMLCodec())
	r.RegisterExporter(NewPNGCodec())
	return r
}

// RegisterImporter adds or replaces an importer.
func (r *Registry) RegisterImporter(i Importer) {
	r.importers[i.Format()] = i
}

// RegisterExporter adds or replaces an exporter.
func (r *Registry) RegisterExporter(e Exporter) {
	r.exporters[e.Format()] = e
}

// Importer returns the importer for a format.
func (r *Registry) Importer(format string) (Importer, error) {
	i, ok := r.importers[normalize(format)]
	if !ok {
		return nil, errors.WithHintf(errors.Wrapf(ErrUnknownFormat, "no importer for %q", format), "supported: %s", strings.Join(r.ImportFormats(), ", "))
	}
	return i, nil
}

// Exporter returns the exporter for a format.
func (r *Registry) Exporter(format string) (Exporter, error) {
	e, ok := r.exporters[normalize(format)]
	if !ok {
		return nil, errors.WithHintf(errors.Wrapf(ErrUnknownFormat, "no exporter for %q", format), "supported: %s", strings.Join(r.ExportFormats(), ", "))
	}
	return e, nil
}

// ImportFormats lists the importable formats.
func (r *Registry) ImportFormats() []string {
	return sortedKeys(r.importers)
}

// ExportFormats lists the exportable formats.
func (r *Registry) ExportFormats() []string {
	return sortedKeys(r.exporters)
}

// FormatForPath derives a format name from a file extension.
func FormatForPath(path string) string {
	return normalize(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Import parses and validates a fragment.
func (r *Registry) Import(format string, src io.Reader) (*domain.GraphFragment, error) {
	i, err := r.Importer(format)
	if err != nil {
		return nil, err
	}
	fragment, err := i.Parse(src)
	if err != nil {
		return nil, err
	}
	if err := fragment.Validate(); err != nil {
		return nil, err
	}
	return fragment, nil
}

// Export writes a fragment.
func (r *Registry) Export(format string, fragment *domain.GraphFragment, w io.Writer) error {
	e, err := r.Exporter(format)
	if err != nil {
		return err
	}
	return e.Export(fragment, w)
}

func normalize(format string) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "yml":
		return "yaml"
	default:
		return f
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
