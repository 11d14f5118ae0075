// Package suite runs conformance groups against a command station. Every
// group is executed twice, first with verbose command feedback and then
// quiet, and the outcomes are tallied across the whole run.
package suite

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tonylturner/dccverify/internal/protocol"
)

// Case is one command line and the response it must produce.
type Case struct {
	Command string `yaml:"cmd" json:"cmd"`
	Expect  string `yaml:"expect" json:"expect"`
}

// Group is a named, ordered list of cases. Railcom groups have the
// identification block decoded from their CV 257-272 reads.
type Group struct {
	Name    string `yaml:"name" json:"name"`
	Railcom bool   `yaml:"railcom,omitempty" json:"railcom,omitempty"`
	Cases   []Case `yaml:"cases" json:"cases"`
}

// File is the on-disk format of a suite file.
type File struct {
	Groups []Group `yaml:"groups"`
}

// Validate checks that every case line can be sent.
func (g Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("group name is required")
	}
	if len(g.Cases) == 0 {
		return fmt.Errorf("group %q has no cases", g.Name)
	}
	for i, c := range g.Cases {
		if _, err := protocol.NewRawCommand(c.Command); err != nil {
			return fmt.Errorf("group %q case %d: %w", g.Name, i+1, err)
		}
	}
	return nil
}

// LoadFile reads additional groups from a YAML suite file.
func LoadFile(path string) ([]Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML suite.
func Parse(data []byte) ([]Group, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse suite: %w", err)
	}
	seen := make(map[string]bool, len(f.Groups))
	for _, g := range f.Groups {
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if seen[g.Name] {
			return nil, fmt.Errorf("duplicate group %q", g.Name)
		}
		seen[g.Name] = true
	}
	return f.Groups, nil
}

// Merge appends extra to base. A group in extra replaces the base group of
// the same name in place.
func Merge(base, extra []Group) []Group {
	out := make([]Group, len(base))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, g := range out {
		index[g.Name] = i
	}
	for _, g := range extra {
		if i, ok := index[g.Name]; ok {
			out[i] = g
			continue
		}
		index[g.Name] = len(out)
		out = append(out, g)
	}
	return out
}

// Select returns the named groups in the order given. An empty selection
// returns all groups. Unknown names are an error.
func Select(groups []Group, names []string) ([]Group, error) {
	if len(names) == 0 {
		return groups, nil
	}
	byName := make(map[string]Group, len(groups))
	for _, g := range groups {
		byName[g.Name] = g
	}
	out := make([]Group, 0, len(names))
	var unknown []string
	for _, n := range names {
		g, ok := byName[strings.TrimSpace(n)]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		out = append(out, g)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown group(s): %s (available: %s)", strings.Join(unknown, ", "), strings.Join(Names(groups), ", "))
	}
	return out, nil
}

// Names lists group names in order.
func Names(groups []Group) []string {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	return names
}
