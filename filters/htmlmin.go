// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package filters

import (
	"github.com/dchest/htmlmin"

	"github.com/reanimator/wwwmin/markup"
)

// `htmlmin` is a primitive not-so-correct HTML minimizer filter.
// It never drops attributes, so type="text" on inputs always survives.
//
// `htmljsmin` is htmlmin which always minifies inline scripts.
//
// Inline scripts are minified by the same minifier as the `jsmin` filter
// and handed to htmlmin as is.

func init() {
	Register("htmlmin", func(args []string, opts Options) (Filter, error) {
		return &HTMLMin{opts: opts}, nil
	})
	Register("htmljsmin", func(args []string, opts Options) (Filter, error) {
		opts.MinifyJS = true
		return &HTMLMin{opts: opts}, nil
	})
}

type HTMLMin struct {
	opts Options
}

func (f *HTMLMin) Name() string { return "htmlmin" }

func (f *HTMLMin) Apply(in []byte) (out []byte, err error) {
	if err := markup.Check(in, f.opts.MinifyJS); err != nil {
		return nil, err
	}
	if f.opts.MinifyJS {
		in, err = markup.MapScripts(in, minifyJS)
		if err != nil {
			return nil, err
		}
	}
	out, err = htmlmin.Minify(in, &htmlmin.Options{
		MinifyScripts: false,
		MinifyStyles:  f.opts.MinifyCSS,
	})
	if err != nil {
		return nil, &markup.SyntaxError{Msg: err.Error()}
	}
	return out, nil
}
