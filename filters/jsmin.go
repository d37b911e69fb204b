// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package filters

// `jsmin` minifies standalone JavaScript files.
//
// It is backed by tdewolff/minify: github.com/dchest/jsmin exits the
// process on input it can't handle instead of returning an error.

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"

	"github.com/reanimator/wwwmin/markup"
)

const jsMediaType = "application/javascript"

var jsMinifier = minify.New()

func init() {
	jsMinifier.AddFunc(jsMediaType, js.Minify)
	Register("jsmin", func(args []string, opts Options) (Filter, error) {
		return JSMin(0), nil
	})
}

// minifyJS minifies a script, returning tdewolff parse errors as is.
func minifyJS(in []byte) ([]byte, error) {
	return jsMinifier.Bytes(jsMediaType, in)
}

type JSMin int

func (f JSMin) Name() string { return "jsmin" }

func (f JSMin) Apply(in []byte) (out []byte, err error) {
	out, err = minifyJS(in)
	if err != nil {
		if err = markup.FromParseError(err); !markup.IsSyntaxError(err) {
			err = &markup.SyntaxError{Msg: err.Error()}
		}
		return nil, err
	}
	return out, nil
}
