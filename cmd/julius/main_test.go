package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doismellburning/juliusgo/internal/graphout"
	"github.com/doismellburning/juliusgo/internal/search1"
	"github.com/doismellburning/juliusgo/internal/search2"
	"github.com/doismellburning/juliusgo/internal/session"
	"github.com/doismellburning/juliusgo/internal/trellis"
	"github.com/doismellburning/juliusgo/internal/wchmm"
	"github.com/charmbracelet/log"
)

type fakeProvider struct{}

func (fakeProvider) Words() []wchmm.Word                    { return nil }
func (fakeProvider) Phones() []wchmm.Phone                  { return nil }
func (fakeProvider) ShortPausePhone() wchmm.PhoneID          { return 0 }
func (fakeProvider) NextSegment() []int16                   { return nil }
func (fakeProvider) FrameCount(samples []int16) int         { return 0 }
func (fakeProvider) AcousticModel([]int16) search1.AcousticModel { return nil }
func (fakeProvider) LanguageModel(wchmm.WordID) search1.LanguageModel { return nil }
func (fakeProvider) NextWordSource(*trellis.Trellis) search2.NextWordSource { return nil }
func (fakeProvider) Rescorer(search1.AcousticModel) search2.Rescorer { return nil }
func (fakeProvider) Acceptor() search2.Acceptor { return nil }
func (fakeProvider) OnWordGraph(*graphout.Graph) {}
func (fakeProvider) Render([]wchmm.WordID) string { return "" }

func TestRegisterModelProviderRoundTrip(t *testing.T) {
	RegisterModelProvider("test-roundtrip", fakeProvider{})
	p, ok := lookupModelProvider("test-roundtrip")
	require.True(t, ok)
	assert.Equal(t, fakeProvider{}, p)
}

func TestRunWithConfigErrorsWithoutRegisteredProvider(t *testing.T) {
	sess := session.New(log.ErrorLevel)
	defer sess.Close()

	code, err := runWithConfig(sess, config{amlm: "does-not-exist"}) //nolint:exhaustruct
	assert.Equal(t, 1, code)
	assert.Error(t, err)
}

func TestApplyJconfDispatchesGlobalSectionFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.jconf")
	require.NoError(t, os.WriteFile(path, []byte("-b 42\n-AM\n-hlist ignored.hlist\n"), 0o644))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	beam := fs.Int("b", 1000, "")

	require.NoError(t, applyJconf(fs, path))
	assert.Equal(t, 42, *beam)
}

func TestApplyJconfSkipsUnknownFlagsSilently(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.jconf")
	require.NoError(t, os.WriteFile(path, []byte("-notaflag somevalue\n"), 0o644))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, applyJconf(fs, path))
}

func TestIsYAMLPathDetectsSuffix(t *testing.T) {
	assert.True(t, isYAMLPath("config.yaml"))
	assert.True(t, isYAMLPath("config.yml"))
	assert.False(t, isYAMLPath("config.jconf"))
}
