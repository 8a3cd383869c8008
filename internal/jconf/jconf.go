// Package jconf implements the re-entrant jconf option-file scanner
// (spec §6): a newline-delimited option stream supporting "-C path"
// includes and "-AM"/"-LM"/"-SR"/"-GLOBAL" section headers that
// re-target subsequent options to a named submodule.
//
// Loading what a jconf option actually names (an acoustic model file, an
// N-gram file) is explicitly out of scope (spec's Non-goals): this
// package only recovers the flat (section, key, value) option stream so
// a caller (cmd/julius's pflag-based CLI layer) can dispatch recognized
// options to whichever external collaborator owns them.
package jconf

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Section names the submodule subsequent options apply to until the
// next section header or end of file.
type Section int

const (
	SectionGlobal Section = iota
	SectionAM
	SectionLM
	SectionSR
)

func (s Section) String() string {
	switch s {
	case SectionAM:
		return "AM"
	case SectionLM:
		return "LM"
	case SectionSR:
		return "SR"
	default:
		return "GLOBAL"
	}
}

// Option is one (section, flag, args) triple recovered from the stream.
// Args holds whatever whitespace-separated tokens followed the flag on
// its line, unsplit into typed values — the caller decides how to
// interpret them.
type Option struct {
	Section Section
	Flag    string
	Args    []string
	Source  string // file the option came from, for diagnostics
	Line    int
}

// maxIncludeDepth guards against a jconf file including itself, directly
// or via a cycle.
const maxIncludeDepth = 32

// ParseFile scans path (and, transitively, any "-C" includes it
// contains) into a flat option list in file order.
func ParseFile(path string) ([]Option, error) {
	return parseFile(path, SectionGlobal, 0)
}

func parseFile(path string, startSection Section, depth int) ([]Option, error) {
	if depth > maxIncludeDepth {
		return nil, fmt.Errorf("jconf: include depth exceeds %d at %s (cycle?)", maxIncludeDepth, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jconf: open %s: %w", path, err)
	}
	defer f.Close()

	var opts []Option
	section := startSection
	lineNo := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		fields := strings.Fields(line)
		flag := fields[0]
		args := fields[1:]

		switch strings.ToUpper(flag) {
		case "-GLOBAL":
			section = SectionGlobal
			continue
		case "-AM":
			section = SectionAM
			continue
		case "-LM":
			section = SectionLM
			continue
		case "-SR":
			section = SectionSR
			continue
		case "-C":
			if len(args) != 1 {
				return nil, fmt.Errorf("jconf: %s:%d: -C requires exactly one path argument", path, lineNo)
			}
			includePath := args[0]
			if !filepath.IsAbs(includePath) {
				includePath = filepath.Join(filepath.Dir(path), includePath)
			}
			sub, err := parseFile(includePath, section, depth+1)
			if err != nil {
				return nil, err
			}
			opts = append(opts, sub...)
			continue
		}

		opts = append(opts, Option{
			Section: section,
			Flag:    flag,
			Args:    args,
			Source:  path,
			Line:    lineNo,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jconf: read %s: %w", path, err)
	}
	return opts, nil
}
