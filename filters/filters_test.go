package filters

import (
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reanimator/wwwmin/markup"
)

const simpleDoc = `<!DOCTYPE html><html>  <body>  <p>Hi</p>  </body></html>`

func TestHTMLMin(t *testing.T) {
	f, err := Make("htmlmin", nil, DefaultOptions)
	require.NoError(t, err)

	out, err := f.Apply([]byte(simpleDoc))
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "<p>Hi</p>")
	assert.NotContains(t, s, "  ")
	assert.Less(t, len(s), len(simpleDoc))
	assert.Equal(t, strings.TrimSpace(s), s)
	assert.True(t, utf8.Valid(out))
}

func TestHTMLMinKeepsInputTypeText(t *testing.T) {
	f, err := Make("htmlmin", nil, DefaultOptions)
	require.NoError(t, err)
	out, err := f.Apply([]byte(`<form>  <input type="text" name="ssid">  </form>`))
	require.NoError(t, err)
	assert.Contains(t, string(out), `type="text"`)
}

func TestHTMLMinRejectsMalformed(t *testing.T) {
	for _, name := range []string{"htmlmin", "htmljsmin", "minify"} {
		f, err := Make(name, nil, DefaultOptions)
		require.NoError(t, err)

		_, err = f.Apply([]byte(`<p>Hi</p><div class="x`))
		assert.True(t, markup.IsSyntaxError(err), "%s: %v", name, err)

		_, err = f.Apply([]byte(`<script>var = ;</script>`))
		assert.True(t, markup.IsSyntaxError(err), "%s: %v", name, err)
	}
}

func TestHTMLMinScriptsOff(t *testing.T) {
	opts := DefaultOptions
	opts.MinifyJS = false
	f, err := Make("htmlmin", nil, opts)
	require.NoError(t, err)
	// Broken script is not parsed when it isn't going to be minified.
	_, err = f.Apply([]byte(`<script>var = ;</script>`))
	assert.NoError(t, err)
}

func TestMinify(t *testing.T) {
	f, err := Make("minify", nil, DefaultOptions)
	require.NoError(t, err)

	out, err := f.Apply([]byte(simpleDoc))
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "<p>Hi")
	assert.NotContains(t, s, "  ")
	assert.Less(t, len(s), len(simpleDoc))

	out, err = f.Apply([]byte(`<form>  <input type="text" name="ssid">  </form>`))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`type="?text"?`), string(out))
}

func TestMinifyScripts(t *testing.T) {
	doc := []byte("<script>\n  var  answer = 40 + 2;\n  console.log( answer );\n</script>")

	on, err := Make("minify", nil, DefaultOptions)
	require.NoError(t, err)
	out, err := on.Apply(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "console.log( answer )")

	opts := DefaultOptions
	opts.MinifyJS = false
	off, err := Make("minify", nil, opts)
	require.NoError(t, err)
	out, err = off.Apply(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "console.log( answer )")
}

func TestCSSMin(t *testing.T) {
	out, err := CSSMin(0).Apply([]byte("body {\n  color : red;\n}\n"))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "\n")
	assert.Contains(t, string(out), "color:red")
}

func TestJSMin(t *testing.T) {
	out, err := JSMin(0).Apply([]byte("var r = /x/// note\nvar  s = 'ok';\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "/x/")
	assert.NotContains(t, string(out), "note")

	_, err = JSMin(0).Apply([]byte("var s = \"unterminated;\n"))
	assert.True(t, markup.IsSyntaxError(err))

	_, err = JSMin(0).Apply([]byte("var = ;"))
	assert.True(t, markup.IsSyntaxError(err))
}

func TestHTMLMinRegexpFollowedByComment(t *testing.T) {
	for _, name := range []string{"htmlmin", "htmljsmin", "minify"} {
		f, err := Make(name, nil, DefaultOptions)
		require.NoError(t, err)
		out, err := f.Apply([]byte("<script>var r = /x/// note\n</script><p>ok</p>"))
		require.NoError(t, err, name)
		assert.Contains(t, string(out), "/x/", name)
		assert.Contains(t, string(out), "<p>ok</p>", name)
	}
}

func TestMakeUnknown(t *testing.T) {
	_, err := Make("nope", nil, DefaultOptions)
	assert.Error(t, err)
	_, err = Make("exec", nil, DefaultOptions)
	assert.Error(t, err)
}

func TestExec(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat is not available")
	}
	f, err := Make("exec", []string{"cat"}, DefaultOptions)
	require.NoError(t, err)
	require.NoError(t, f.(Checker).Check())
	out, err := f.Apply([]byte("<p>x</p>"))
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", string(out))

	f, err = Make("exec", []string{"sh", "-c", "echo bad input >&2; exit 1"}, DefaultOptions)
	require.NoError(t, err)
	_, err = f.Apply([]byte("<p>x</p>"))
	require.Error(t, err)
	assert.True(t, markup.IsSyntaxError(err))
	assert.Contains(t, err.Error(), "bad input")
}

func TestCollection(t *testing.T) {
	c := NewCollection(DefaultOptions)
	require.NoError(t, c.AddFromYAML(DefaultKey, "htmlmin"))
	require.NoError(t, c.AddFromYAML(".css", "cssmin"))
	require.NoError(t, c.AddFromYAML(".txt", []interface{}{"exec", "cat"}))
	assert.Error(t, c.AddFromYAML(".x", 42))
	assert.Error(t, c.AddFromYAML(".x", []interface{}{}))
	assert.Error(t, c.AddFromYAML(".x", []interface{}{"exec", 1}))

	assert.Equal(t, "cssmin", c.Lookup(".css").Name())
	assert.Equal(t, "htmlmin", c.Lookup(".htm").Name())
	assert.Nil(t, c.Get(".htm"))

	out, err := c.ApplyFilter(".css", []byte("a { color: red; }"))
	require.NoError(t, err)
	assert.Equal(t, "a{color:red}", string(out))
}

func TestCollectionCheck(t *testing.T) {
	c := NewCollection(DefaultOptions)
	require.NoError(t, c.AddFromYAML(DefaultKey, "htmlmin"))
	assert.NoError(t, c.Check())

	require.NoError(t, c.Add(".htm", "exec", []string{"surely-there-is-no-such-minifier"}))
	assert.Error(t, c.Check())
}
