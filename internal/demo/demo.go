// Package demo bundles sample documents for trying the analyzer offline.
package demo

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed samples/*.md
var samples embed.FS

// Sample is one bundled document
type Sample struct {
	Name    string
	Title   string
	Content string
}

// Samples returns every bundled document sorted by name
func Samples() ([]Sample, error) {
	entries, err := fs.ReadDir(samples, "samples")
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}

	out := make([]Sample, 0, len(entries))
	for _, e := range entries {
		s, err := load(e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns the sample with the given name (file name without extension)
func Get(name string) (Sample, error) {
	s, err := load(name + ".md")
	if err != nil {
		return Sample{}, fmt.Errorf("unknown demo %q", name)
	}
	return s, nil
}

// Names lists the bundled sample names
func Names() []string {
	all, err := Samples()
	if err != nil {
		return nil
	}
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

func load(file string) (Sample, error) {
	data, err := samples.ReadFile(path.Join("samples", file))
	if err != nil {
		return Sample{}, err
	}
	content := string(data)
	return Sample{
		Name:    strings.TrimSuffix(file, path.Ext(file)),
		Title:   title(content),
		Content: content,
	}, nil
}

func title(content string) string {
	first, _, _ := strings.Cut(content, "\n")
	return strings.TrimSpace(strings.TrimPrefix(first, "#"))
}
