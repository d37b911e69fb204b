package filters

// `minify` minifies HTML with tdewolff/minify, which is more aggressive
// than htmlmin: it drops optional end tags, quotes and default attribute values.

import (
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"github.com/reanimator/wwwmin/markup"
)

const htmlMediaType = "text/html"

var jsMediaTypes = regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$")

func init() {
	Register("minify", func(args []string, opts Options) (Filter, error) {
		return NewMinify(opts), nil
	})
}

type Minify struct {
	m    *minify.M
	opts Options
}

// NewMinify returns a tdewolff/minify based HTML filter.
func NewMinify(opts Options) *Minify {
	m := minify.New()
	m.Add(htmlMediaType, &html.Minifier{
		KeepDocumentTags: true,
		// Default values such as type="text" are only dropped on request,
		// and quotes stay with them so the attribute is kept byte for byte.
		KeepDefaultAttrVals: opts.KeepInputTypeTextAttr,
		KeepQuotes:          opts.KeepInputTypeTextAttr,
	})
	// Unregistered media types are copied as is.
	if opts.MinifyCSS {
		m.AddFunc("text/css", css.Minify)
	}
	if opts.MinifyJS {
		m.AddFuncRegexp(jsMediaTypes, js.Minify)
	}
	return &Minify{m: m, opts: opts}
}

func (f *Minify) Name() string { return "minify" }

func (f *Minify) Apply(in []byte) ([]byte, error) {
	if err := markup.Check(in, f.opts.MinifyJS); err != nil {
		return nil, err
	}
	out, err := f.m.Bytes(htmlMediaType, in)
	if err != nil {
		return nil, markup.FromParseError(err)
	}
	return out, nil
}
