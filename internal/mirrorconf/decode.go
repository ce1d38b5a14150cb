// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

package mirrorconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// ConfigError reports a mirror configuration that could not be read or
// decoded. Callers treat it as fatal.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("mirror config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Decoder turns raw configuration bytes into a Document.
type Decoder interface {
	Decode(data []byte) (*Document, error)
}

// DecoderFor picks a decoder from the file extension: YAML for .yaml and
// .yml, INI for everything else.
func DecoderFor(path string) Decoder {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLDecoder{}
	default:
		return INIDecoder{}
	}
}

// Load reads and decodes the configuration at path.
func Load(path string) (*Document, error) {
	return LoadWith(path, DecoderFor(path))
}

// LoadWith reads path and decodes it with dec.
func LoadWith(path string, dec Decoder) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	doc, err := dec.Decode(data)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return doc, nil
}

// YAMLDecoder decodes the current nod32ms.yaml layout. It walks the node
// tree rather than a Go map so key order survives. An empty document or one
// whose root is not a mapping decodes to an empty Document.
type YAMLDecoder struct{}

func (YAMLDecoder) Decode(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return NewDocument(), nil
	}
	top := resolveAlias(root.Content[0])
	if top.Kind != yaml.MappingNode {
		return NewDocument(), nil
	}
	v, err := fromNode(top)
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func fromNode(n *yaml.Node) (any, error) {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.MappingNode:
		doc := NewDocument()
		for i := 0; i+1 < len(n.Content); i += 2 {
			val, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			doc.Set(n.Content[i].Value, val)
		}
		return doc, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, nil
	}
}

// INIDecoder decodes the legacy nod32ms.conf layouts. Dotted section names
// such as [ESET.VERSIONS.10] become nested sections; keys of the unnamed
// default section land at the top level. All values stay strings.
type INIDecoder struct{}

func (INIDecoder) Decode(data []byte) (*Document, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		SpaceBeforeInlineComment: true,
		AllowBooleanKeys:         true,
	}, data)
	if err != nil {
		return nil, err
	}

	doc := NewDocument()
	for _, sec := range f.Sections() {
		target := doc
		if sec.Name() != ini.DefaultSection {
			for _, part := range strings.Split(sec.Name(), ".") {
				target = target.EnsureSection(part)
			}
		}
		for _, key := range sec.Keys() {
			target.Set(key.Name(), key.Value())
		}
	}
	return doc, nil
}
