package project

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reanimator/wwwmin/buildhook"
)

func writeProject(t *testing.T, config string) string {
	t.Helper()
	dir := t.TempDir()
	if config != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(config), 0644))
	}
	html := filepath.Join(dir, DefaultInputDir)
	require.NoError(t, os.Mkdir(html, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(html, "index.htm"), []byte("<html>\n  <body>\n    <p>Hi</p>\n  </body>\n</html>\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(html, "b.htm"), []byte(`<p>Hi</p><div class="x`), 0644))
	return dir
}

func quiet(p *Project) *bytes.Buffer {
	var buf bytes.Buffer
	p.Log = log.New(&buf, "", 0)
	return &buf
}

func TestReadConfigDefaults(t *testing.T) {
	c, err := ReadConfig(filepath.Join(t.TempDir(), ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
	assert.True(t, c.Minify.MinifyJS)
	assert.True(t, c.Minify.MinifyCSS)
	assert.True(t, c.Minify.KeepInputTypeTextAttr)
	assert.False(t, c.Compress)
}

func TestReadConfig(t *testing.T) {
	name := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(name, []byte(`
input: www
output: data/www
compress: true
compression: [gzip, br]
jobs: 0
minify:
  minify_css: false
filters:
  .css: cssmin
  .txt: [exec, cat]
`), 0644))
	c, err := ReadConfig(name)
	require.NoError(t, err)
	assert.Equal(t, "www", c.Input)
	assert.Equal(t, "data/www", c.Output)
	assert.Equal(t, DefaultTarget, c.Target)
	assert.True(t, c.Compress)
	assert.Equal(t, []string{"gzip", "br"}, c.Compression)
	assert.Equal(t, 1, c.Jobs)
	assert.True(t, c.Clean)
	// Unset options keep their defaults.
	assert.False(t, c.Minify.MinifyCSS)
	assert.True(t, c.Minify.MinifyJS)
	assert.Len(t, c.Filters, 2)
}

func TestReadConfigError(t *testing.T) {
	name := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(name, []byte("input: [unclosed"), 0644))
	_, err := ReadConfig(name)
	assert.Error(t, err)
}

func TestNewErrors(t *testing.T) {
	dir := t.TempDir()
	c := DefaultConfig()
	c.Output = c.Input
	_, err := New(dir, c)
	assert.Error(t, err)

	c = DefaultConfig()
	c.Compress = true
	c.Compression = []string{"lzma"}
	_, err = New(dir, c)
	assert.Error(t, err)

	c = DefaultConfig()
	c.Filters = map[string]interface{}{".htm": "nope"}
	_, err = New(dir, c)
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	dir := writeProject(t, "compress: true\n")
	p, err := Open(dir)
	require.NoError(t, err)
	logs := quiet(p)

	// Stale artifacts are removed before building.
	require.NoError(t, os.MkdirAll(p.OutputDir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(p.OutputDir(), "old.htm.gz"), nil, 0644))

	report, err := p.Build()
	require.NoError(t, err)
	assert.Len(t, report.Failed(), 1)

	assert.FileExists(t, filepath.Join(dir, DefaultOutputDir, "index.htm.gz"))
	assert.NoFileExists(t, filepath.Join(dir, DefaultOutputDir, "index.htm"))
	assert.NoFileExists(t, filepath.Join(dir, DefaultOutputDir, "b.htm.gz"))
	assert.NoFileExists(t, filepath.Join(dir, DefaultOutputDir, "old.htm.gz"))
	assert.Contains(t, logs.String(), "! b.htm")
	assert.Contains(t, logs.String(), "* Build in")
}

func TestBuildNoClean(t *testing.T) {
	dir := writeProject(t, "clean: false\n")
	p, err := Open(dir)
	require.NoError(t, err)
	quiet(p)

	require.NoError(t, os.MkdirAll(p.OutputDir(), 0755))
	keep := filepath.Join(p.OutputDir(), "keep.txt")
	require.NoError(t, os.WriteFile(keep, nil, 0644))

	_, err = p.Build()
	require.NoError(t, err)
	assert.FileExists(t, keep)
	assert.FileExists(t, filepath.Join(p.OutputDir(), "index.htm"))
}

func TestBuildMissingInput(t *testing.T) {
	p, err := New(t.TempDir(), DefaultConfig())
	require.NoError(t, err)
	quiet(p)
	_, err = p.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestOutputContainingSources(t *testing.T) {
	for _, output := range []string{".", "..", "./", "html/..", filepath.Join("..", "..")} {
		dir := writeProject(t, "output: "+output+"\n")
		_, err := Open(dir)
		assert.Error(t, err, output)

		// Clean refuses too if the config is changed after New.
		p, err := Open(writeProject(t, ""))
		require.NoError(t, err)
		quiet(p)
		p.Config.Output = output
		assert.Error(t, p.Clean(), output)
		assert.FileExists(t, filepath.Join(p.InputDir(), "index.htm"))

		assert.FileExists(t, filepath.Join(dir, DefaultInputDir, "index.htm"))
		assert.FileExists(t, filepath.Join(dir, DefaultInputDir, "b.htm"))
	}
}

func TestOutputNextToInput(t *testing.T) {
	dir := writeProject(t, "output: html_out\n")
	p, err := Open(dir)
	require.NoError(t, err)
	quiet(p)
	_, err = p.Build()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "html_out", "index.htm"))
}

func TestPostAction(t *testing.T) {
	dir := writeProject(t, "")
	p, err := Open(dir)
	require.NoError(t, err)

	r := buildhook.NewRegistry()
	p.Register(r)
	var buf bytes.Buffer
	env := &buildhook.Env{ProjectDir: dir, Target: DefaultTarget, Log: log.New(&buf, "", 0)}
	require.NoError(t, r.RunPostActions(env))

	b, err := os.ReadFile(filepath.Join(dir, DefaultOutputDir, "index.htm"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "<p>Hi</p>")
	assert.False(t, strings.HasSuffix(string(b), "\n\n"))
	assert.Equal(t, 1, strings.Count(buf.String(), "! b.htm"))

	env.Target = "upload"
	assert.ErrorIs(t, r.RunPostActions(env), buildhook.ErrNoActions)
}

func TestPostActionOpensProject(t *testing.T) {
	dir := writeProject(t, "output: www\n")
	env := &buildhook.Env{ProjectDir: dir, Target: DefaultTarget, Log: buildhook.Discard}
	require.NoError(t, PostAction(env))
	assert.FileExists(t, filepath.Join(dir, "www", "index.htm"))
}

func TestWatch(t *testing.T) {
	dir := writeProject(t, "")
	p, err := Open(dir)
	require.NoError(t, err)
	quiet(p)
	require.NoError(t, p.StartWatching(10*time.Millisecond))
	defer p.StopWatching()

	require.NoError(t, os.WriteFile(filepath.Join(p.InputDir(), "new.htm"), []byte("<p>new</p>"), 0644))
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(p.OutputDir(), "new.htm"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}
