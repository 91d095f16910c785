// Package hparams reads the hparams.yaml a training framework drops
// next to its logs. These files routinely carry serializer-specific
// tags (!!python/name:... and friends) that no Go type can decode, so
// parsing walks the raw node tree and renders every value as a display
// string instead of failing on the first foreign tag.
package hparams

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Param is one hyperparameter with a display-ready value.
type Param struct {
	Name  string
	Value string
}

const fileName = "hparams.yaml"

// Load reads the hyperparameters of one run, sorted by name. A run
// without the file yields nil and no error.
func Load(runDir string) ([]Param, error) {
	data, err := os.ReadFile(filepath.Join(runDir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", filepath.Join(runDir, fileName), err)
	}
	params, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Join(runDir, fileName), err)
	}
	return params, nil
}

// Parse decodes a hparams document into sorted display params.
func Parse(data []byte) ([]Param, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing hparams: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parsing hparams: document is not a mapping")
	}
	var params []Param
	for i := 0; i+1 < len(root.Content); i += 2 {
		params = append(params, Param{
			Name:  root.Content[i].Value,
			Value: render(root.Content[i+1]),
		})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	return params, nil
}

func render(n *yaml.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case yaml.AliasNode:
		return render(n.Alias)
	case yaml.ScalarNode:
		return renderScalar(n)
	case yaml.SequenceNode:
		items := make([]string, len(n.Content))
		for i, c := range n.Content {
			items[i] = render(c)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case yaml.MappingNode:
		var pairs []string
		for i := 0; i+1 < len(n.Content); i += 2 {
			pairs = append(pairs, render(n.Content[i])+": "+render(n.Content[i+1]))
		}
		body := "{" + strings.Join(pairs, ", ") + "}"
		if tag := foreignTag(n.Tag); tag != "" {
			return strings.TrimSpace(tag + " " + body)
		}
		return body
	default:
		return ""
	}
}

func renderScalar(n *yaml.Node) string {
	val := n.Value
	if n.Tag == "!!null" {
		return "null"
	}
	if tag := foreignTag(n.Tag); tag != "" {
		return strings.TrimSpace(tag + " " + val)
	}
	// Paths bloat table cells; keep the file stem like everyone reads
	// them anyway.
	if n.Tag == "!!str" && strings.Contains(val, "/") && !strings.Contains(val, "://") {
		base := filepath.Base(val)
		val = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return strings.Join(strings.Fields(val), " ")
}

var coreTags = map[string]bool{
	"!!str": true, "!!int": true, "!!float": true, "!!bool": true,
	"!!null": true, "!!map": true, "!!seq": true, "!!timestamp": true,
	"!!binary": true, "!!merge": true,
}

// foreignTag returns the tag when it is one a serializer invented,
// empty for plain YAML.
func foreignTag(tag string) string {
	if tag == "" || coreTags[tag] {
		return ""
	}
	if strings.HasPrefix(tag, "!") {
		return tag
	}
	return ""
}
