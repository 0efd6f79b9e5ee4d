package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/errors"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlFragment is the YAML document layout. Edges may be written either as
// {source, target} maps or as a compact "1 -> 2" string.
type yamlFragment struct {
	Nodes []domain.NodeRecord `yaml:"nodes"`
	Edges []yamlEdge          `yaml:"edges"`
	View  *domain.ViewRecord  `yaml:"view,omitempty"`
}

type yamlEdge struct {
	domain.EdgeRecord `yaml:",inline"`
}

// UnmarshalYAML accepts the map form and the "source -> target" form.
func (e *yamlEdge) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var src, dst int64
		if _, err := fmt.Sscanf(node.Value, "%d -> %d", &src, &dst); err != nil {
			return errors.Wrapf(err, "line %d: edge %q", node.Line, node.Value)
		}
		e.Source, e.Target = domain.NodeID(src), domain.NodeID(dst)
		return nil
	}
	return node.Decode(&e.EdgeRecord)
}

// Parse imports graph data from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.GraphFragment, error) {
	var yf yamlFragment
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&yf); err != nil && err != io.EOF {
		return nil, errors.Mark(errors.Wrap(err, "failed to parse YAML"), ErrMalformed)
	}

	fragment := domain.NewGraphFragment()
	for _, n := range yf.Nodes {
		fragment.AddNode(n)
	}
	for _, e := range yf.Edges {
		fragment.AddEdge(e.EdgeRecord)
	}
	fragment.View = yf.View

	return fragment, nil
}

// Export exports graph data to YAML
func (c *YAMLCodec) Export(fragment *domain.GraphFragment, w io.Writer) error {
	yf := yamlFragment{
		Nodes: fragment.Nodes,
		Edges: make([]yamlEdge, 0, len(fragment.Edges)),
		View:  fragment.View,
	}
	for _, e := range fragment.Edges {
		yf.Edges = append(yf.Edges, yamlEdge{EdgeRecord: e})
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&yf); err != nil {
		return errors.Wrap(err, "failed to encode YAML")
	}

	return nil
}
