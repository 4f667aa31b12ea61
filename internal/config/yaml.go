package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const fileTemplate = `# themedist configuration. Every key can be overridden with a flag or a
# THEMEDIST_* environment variable, e.g. THEMEDIST_REVIEW_TOKEN.

# Built theme directory and the distribution working tree it is mirrored into.
source: shopify
target: ../theme-dist

# Command producing the build output, run before anything is copied.
build: npm run build

# Remote of the distribution repository. Leave empty to only commit locally.
remote: ""

# Dedicated deployment branch. Empty commits to the current branch.
branch: ""

message: "Auto-deploy: Theme update"
commit: true
push: true
`

// Entry is a value to write under a dotted key such as review.base.
type Entry struct {
	Key   string
	Value string
}

// WriteFile creates or updates a config file in place. A new file starts
// from a commented template. Values already in an existing file are only
// replaced when overwrite is set. Comments and key order survive. It returns
// the keys that were written.
func WriteFile(path string, entries []Entry, overwrite bool) ([]string, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		data = []byte(fileTemplate)
		overwrite = true
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	root, err := documentMapping(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	written := make([]string, 0, len(entries))
	for _, entry := range entries {
		segments := strings.Split(entry.Key, ".")
		mapping := root
		for _, segment := range segments[:len(segments)-1] {
			mapping = GetOrCreateMap(mapping, segment)
		}
		if SetMappingValue(mapping, segments[len(segments)-1], entry.Value, overwrite) {
			written = append(written, entry.Key)
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	return written, nil
}

func documentMapping(doc *yaml.Node) (*yaml.Node, error) {
	if doc.Kind == 0 {
		doc.Kind = yaml.DocumentNode
	}
	if doc.Kind != yaml.DocumentNode {
		return nil, fmt.Errorf("unexpected yaml node kind %d", doc.Kind)
	}
	if len(doc.Content) == 0 {
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"})
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("top level is not a mapping")
	}

	return root, nil
}

// SetMappingValue sets key in mapping. An existing non-empty value is kept
// unless overwrite is set. It reports whether the value was written.
func SetMappingValue(mapping *yaml.Node, key string, value string, overwrite bool) bool {
	for i := 0; i < len(mapping.Content); i += 2 {
		k := mapping.Content[i]
		v := mapping.Content[i+1]
		if k.Value == key {
			if !overwrite && v.Kind == yaml.ScalarNode && v.Value != "" {
				return false
			}
			v.Kind = yaml.ScalarNode
			v.Tag = scalarTag(value)
			v.Style = 0
			v.Value = value
			v.Content = nil
			return true
		}
	}
	// Key not found, append
	mapping.Content = append(mapping.Content, &yaml.Node{
		Kind:  yaml.ScalarNode,
		Value: key,
		Tag:   "!!str",
	}, &yaml.Node{
		Kind:  yaml.ScalarNode,
		Value: value,
		Tag:   scalarTag(value),
	})

	return true
}

func GetOrCreateMap(parent *yaml.Node, key string) *yaml.Node {
	for i := 0; i < len(parent.Content); i += 2 {
		k := parent.Content[i]
		v := parent.Content[i+1]
		if k.Value == key {
			if v.Kind != yaml.MappingNode {
				v.Kind = yaml.MappingNode
				v.Tag = "!!map"
				v.Value = ""
				v.Content = []*yaml.Node{}
			}
			return v
		}
	}
	// Key not found, create new
	newMap := &yaml.Node{
		Kind:    yaml.MappingNode,
		Tag:     "!!map",
		Content: []*yaml.Node{},
	}
	parent.Content = append(parent.Content, &yaml.Node{
		Kind:  yaml.ScalarNode,
		Value: key,
		Tag:   "!!str",
	}, newMap)

	return newMap
}

func scalarTag(value string) string {
	switch value {
	case "true", "false":
		return "!!bool"
	}

	return "!!str"
}
