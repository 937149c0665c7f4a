package output

import (
	"bufio"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/pic"
)

// FeaturePairs is one entry of a Document.
type FeaturePairs struct {
	ID    string
	Pairs []Pair
}

// Document is an ordered mapping from feature id to the pairs of one bucket.
// It marshals to a YAML mapping that keeps feature order.
type Document []FeaturePairs

// Collect builds the Document for class over features, in feature order.
// A repeated feature id keeps the position of its first occurrence and the
// pairs of its last.
func Collect(features []*pic.FeatureIndex, class pic.Class) Document {
	doc := make(Document, 0, len(features))
	seen := make(map[string]int, len(features))
	for _, f := range features {
		pairs := PairsOf(f.Points(class))
		if i, ok := seen[f.ID]; ok {
			doc[i].Pairs = pairs
			continue
		}
		seen[f.ID] = len(doc)
		doc = append(doc, FeaturePairs{ID: f.ID, Pairs: pairs})
	}
	return doc
}

// Get returns the pairs stored for id.
func (d Document) Get(id string) ([]Pair, bool) {
	for _, fp := range d {
		if fp.ID == id {
			return fp.Pairs, true
		}
	}
	return nil, false
}

func (d Document) MarshalYAML() (any, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, fp := range d {
		value := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, p := range fp.Pairs {
			n, err := p.MarshalYAML()
			if err != nil {
				return nil, err
			}
			value.Content = append(value.Content, n.(*yaml.Node))
		}
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fp.ID},
			value,
		)
	}
	return mapping, nil
}

func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: feature document must be a mapping", node.Line)
	}
	doc := make(Document, 0, len(node.Content)/2)
	seen := make(map[string]int, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if line, ok := seen[key.Value]; ok {
			return fmt.Errorf("line %d: feature %q already defined at line %d", key.Line, key.Value, line)
		}
		seen[key.Value] = key.Line
		var pairs []Pair
		if err := node.Content[i+1].Decode(&pairs); err != nil {
			return fmt.Errorf("feature %q: %w", node.Content[i].Value, err)
		}
		if pairs == nil {
			pairs = []Pair{}
		}
		doc = append(doc, FeaturePairs{ID: node.Content[i].Value, Pairs: pairs})
	}
	*d = doc
	return nil
}

// EncodeYAML writes d as a YAML document.
func EncodeYAML(w io.Writer, d Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding feature document: %w", err)
	}
	return enc.Close()
}

// EncodeText writes the flattened listing: an "ID=<feature>" line followed
// by one "<first> <second>" line per pair.
func EncodeText(w io.Writer, d Document) error {
	bw := bufio.NewWriter(w)
	for _, fp := range d {
		if _, err := fmt.Fprintf(bw, "ID=%s\n", fp.ID); err != nil {
			return err
		}
		for _, p := range fp.Pairs {
			if _, err := fmt.Fprintln(bw, p.String()); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
