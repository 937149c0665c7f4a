// Package output serializes classified features: per-bucket YAML mappings
// from feature id to coordinate pairs, the plain-text matched listing, and
// the reference dump.
package output

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/pic"
)

// Coord is either a grid index or a raw coordinate that did not resolve to
// one. Indices print as integers, raw values always as floats.
type Coord struct {
	Index   int
	Value   float64
	IsIndex bool
}

func IndexCoord(i int) Coord       { return Coord{Index: i, IsIndex: true} }
func ValueCoord(v float64) Coord { return Coord{Value: v} }

func (c Coord) String() string {
	if c.IsIndex {
		return strconv.Itoa(c.Index)
	}
	return formatFloat(c.Value)
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func (c Coord) node() *yaml.Node {
	if c.IsIndex {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(c.Index)}
	}
	var value string
	switch {
	case math.IsNaN(c.Value):
		value = ".nan"
	case math.IsInf(c.Value, 1):
		value = ".inf"
	case math.IsInf(c.Value, -1):
		value = "-.inf"
	default:
		value = formatFloat(c.Value)
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: value}
}

func (c Coord) MarshalYAML() (any, error) {
	return c.node(), nil
}

func (c *Coord) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: coordinate must be a scalar", node.Line)
	}
	if node.ShortTag() == "!!int" {
		var i int
		if err := node.Decode(&i); err != nil {
			return err
		}
		*c = IndexCoord(i)
		return nil
	}
	var v float64
	if err := node.Decode(&v); err != nil {
		return err
	}
	*c = ValueCoord(v)
	return nil
}

// MarshalJSON writes indices and finite values as numbers. NaN and the
// infinities have no JSON number form and are written as the strings "NaN",
// "+Inf" and "-Inf".
func (c Coord) MarshalJSON() ([]byte, error) {
	if c.IsIndex {
		return []byte(strconv.Itoa(c.Index)), nil
	}
	switch {
	case math.IsNaN(c.Value):
		return []byte(`"NaN"`), nil
	case math.IsInf(c.Value, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(c.Value, -1):
		return []byte(`"-Inf"`), nil
	}
	return []byte(c.String()), nil
}

func (c *Coord) UnmarshalJSON(data []byte) error {
	s := string(data)
	switch {
	case s == "null":
		*c = ValueCoord(math.NaN())
		return nil
	case strings.HasPrefix(s, `"`):
		u, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("parsing coordinate %s: %w", s, err)
		}
		v, err := strconv.ParseFloat(u, 64)
		if err != nil || !(math.IsNaN(v) || math.IsInf(v, 0)) {
			return fmt.Errorf("parsing coordinate %s: want NaN, +Inf or -Inf", s)
		}
		*c = ValueCoord(v)
		return nil
	case !strings.ContainsAny(s, ".eE"):
		i, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("parsing index coordinate %q: %w", s, err)
		}
		*c = IndexCoord(i)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parsing coordinate %q: %w", s, err)
	}
	*c = ValueCoord(v)
	return nil
}

// Pair is the (first, second) coordinate of a classified point: scan index
// or raw retention time, then mass index or raw mass.
type Pair struct {
	First  Coord
	Second Coord
}

// PairOf converts a classified point to its output pair.
func PairOf(p pic.Point) Pair {
	var pair Pair
	if p.HasScan() {
		pair.First = IndexCoord(p.ScanIndex)
	} else {
		pair.First = ValueCoord(p.RetentionTime)
	}
	if p.HasMass() {
		pair.Second = IndexCoord(p.MassIndex)
	} else {
		pair.Second = ValueCoord(p.Mass)
	}
	return pair
}

// PairsOf converts a bucket in order.
func PairsOf(points []pic.Point) []Pair {
	pairs := make([]Pair, len(points))
	for i, p := range points {
		pairs[i] = PairOf(p)
	}
	return pairs
}

func (p Pair) String() string {
	return p.First.String() + " " + p.Second.String()
}

func (p Pair) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:    yaml.SequenceNode,
		Style:   yaml.FlowStyle,
		Content: []*yaml.Node{p.First.node(), p.Second.node()},
	}, nil
}

func (p *Pair) UnmarshalYAML(node *yaml.Node) error {
	var coords []Coord
	if err := node.Decode(&coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("line %d: pair has %d elements, want 2", node.Line, len(coords))
	}
	p.First, p.Second = coords[0], coords[1]
	return nil
}

func (p Pair) MarshalJSON() ([]byte, error) {
	return gojson.Marshal([2]Coord{p.First, p.Second})
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var coords [2]Coord
	if err := gojson.Unmarshal(data, &coords); err != nil {
		return err
	}
	p.First, p.Second = coords[0], coords[1]
	return nil
}
