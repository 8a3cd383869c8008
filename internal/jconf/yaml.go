package jconf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlDoc is the optional structured alternative to the line-oriented
// jconf format: one top-level key per section, each holding a flag ->
// args map. It exists for callers who would rather hand-edit a
// config.yaml than a jconf stream; ParseFile's "-C" include mechanism
// has no YAML equivalent, so a YAML document is always self-contained.
type yamlDoc struct {
	Global map[string][]string `yaml:"global"`
	AM     map[string][]string `yaml:"am"`
	LM     map[string][]string `yaml:"lm"`
	SR     map[string][]string `yaml:"sr"`
}

// ParseYAMLFile reads path as a YAML document, the structured sibling of
// ParseFile's jconf-line format (the teacher's own deviceid.go reads its
// per-device configuration table the same way, via gopkg.in/yaml.v3).
func ParseYAMLFile(path string) ([]Option, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jconf: read %s: %w", path, err)
	}

	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jconf: parse %s: %w", path, err)
	}

	var opts []Option
	opts = append(opts, flattenSection(doc.Global, SectionGlobal, path)...)
	opts = append(opts, flattenSection(doc.AM, SectionAM, path)...)
	opts = append(opts, flattenSection(doc.LM, SectionLM, path)...)
	opts = append(opts, flattenSection(doc.SR, SectionSR, path)...)
	return opts, nil
}

func flattenSection(m map[string][]string, section Section, path string) []Option {
	opts := make([]Option, 0, len(m))
	for flag, args := range m {
		opts = append(opts, Option{Section: section, Flag: flag, Args: args, Source: path})
	}
	return opts
}
