// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package filters

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/reanimator/wwwmin/markup"
)

// `exec` pipes content through an external command, for example
// `[exec, html-minifier-terser, --collapse-whitespace]`.
// A command which exits with non-zero status rejects the file.

func init() {
	Register("exec", MakeExecFilter)
}

type execFilter struct {
	command string
	args    []string
}

func MakeExecFilter(args []string, opts Options) (Filter, error) {
	if len(args) == 0 {
		return nil, errors.New("exec filter needs a command")
	}
	return &execFilter{command: args[0], args: args[1:]}, nil
}

func (f *execFilter) Name() string { return fmt.Sprintf("exec %s %q", f.command, f.args) }

func (f *execFilter) Check() error {
	_, err := exec.LookPath(f.command)
	return err
}

func (f *execFilter) Apply(in []byte) (out []byte, err error) {
	cmd := exec.Command(f.command, f.args...)
	cmd.Stdin = bytes.NewReader(in)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = ee.Error()
			}
			return nil, &markup.SyntaxError{Msg: msg}
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
