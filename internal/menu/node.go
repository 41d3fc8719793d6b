// Package menu turns a nested page/menu description, or a menu scraped from
// a live page, into the ordered page list that drives capture.
package menu

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Node is one entry of a menu tree. It is either a bare string leaf (Text
// set, everything else empty) or a mapping with an optional label, an
// optional link and optional children.
type Node struct {
	Text string `yaml:"-"`

	Name     string `yaml:"name,omitempty"`
	Title    string `yaml:"title,omitempty"`
	URL      string `yaml:"url,omitempty"`
	Href     string `yaml:"href,omitempty"`
	Children []Node `yaml:"children,omitempty"`

	leaf bool
}

// Leaf returns a bare string node.
func Leaf(path string) Node {
	return Node{Text: path, leaf: true}
}

// IsText reports whether n is a bare string leaf. An empty string is still
// a leaf and points at the base URL.
func (n Node) IsText() bool {
	return n.leaf || n.Text != ""
}

// Label returns the node's name, falling back to its title.
func (n Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.Title
}

// Link returns the node's url, falling back to href.
func (n Node) Link() string {
	if n.URL != "" {
		return n.URL
	}
	return n.Href
}

// UnmarshalYAML accepts either a scalar (bare string leaf) or a mapping.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.ShortTag() == "!!null" {
			*n = Node{}
			return nil
		}
		*n = Leaf(value.Value)
		return nil
	case yaml.MappingNode:
		type plain Node
		var p plain
		if err := value.Decode(&p); err != nil {
			return err
		}
		*n = Node(p)
		n.Text = ""
		return nil
	default:
		return fmt.Errorf("menu node at line %d: expected string or mapping", value.Line)
	}
}
