package jconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseFileDispatchesSectionsAndSkipsComments(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.jconf", `
# a comment
-b 42
-AM
-hlist model.hlist
-SR
-gram grammar
-GLOBAL
-input stdin
`)

	opts, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, opts, 4)

	assert.Equal(t, SectionGlobal, opts[0].Section)
	assert.Equal(t, "-b", opts[0].Flag)
	assert.Equal(t, []string{"42"}, opts[0].Args)

	assert.Equal(t, SectionAM, opts[1].Section)
	assert.Equal(t, "-hlist", opts[1].Flag)

	assert.Equal(t, SectionSR, opts[2].Section)
	assert.Equal(t, "-gram", opts[2].Flag)

	assert.Equal(t, SectionGlobal, opts[3].Section)
	assert.Equal(t, "-input", opts[3].Flag)
}

func TestParseFileFollowsIncludeInCurrentSection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "am.jconf", "-hlist model.hlist\n-dnnconf dnn.conf\n")
	main := writeFile(t, dir, "main.jconf", "-AM\n-C am.jconf\n-LM\n-gram grammar\n")

	opts, err := ParseFile(main)
	require.NoError(t, err)
	require.Len(t, opts, 3)

	assert.Equal(t, SectionAM, opts[0].Section, "included options inherit the section active at -C")
	assert.Equal(t, "-hlist", opts[0].Flag)
	assert.Equal(t, SectionAM, opts[1].Section)
	assert.Equal(t, "-dnnconf", opts[1].Flag)
	assert.Equal(t, SectionLM, opts[2].Section, "section set after -C applies to the parent file, not the include")
}

func TestParseFileRejectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jconf")
	b := filepath.Join(dir, "b.jconf")
	require.NoError(t, os.WriteFile(a, []byte("-C b.jconf\n"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("-C a.jconf\n"), 0o600))

	_, err := ParseFile(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestParseFileRequiresExactlyOneIncludeArgument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.jconf", "-C one two\n")

	_, err := ParseFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-C requires exactly one path argument")
}

func TestParseYAMLFileFlattensAllSections(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yaml", `
global:
  b: ["42"]
am:
  hlist: ["model.hlist"]
sr:
  gram: ["grammar"]
`)

	opts, err := ParseYAMLFile(path)
	require.NoError(t, err)
	require.Len(t, opts, 3)

	bySection := map[Section]bool{}
	for _, o := range opts {
		bySection[o.Section] = true
	}
	assert.True(t, bySection[SectionGlobal])
	assert.True(t, bySection[SectionAM])
	assert.True(t, bySection[SectionSR])
}

func TestSectionStringNames(t *testing.T) {
	assert.Equal(t, "GLOBAL", SectionGlobal.String())
	assert.Equal(t, "AM", SectionAM.String())
	assert.Equal(t, "LM", SectionLM.String())
	assert.Equal(t, "SR", SectionSR.String())
}
