// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package filewriter writes artifacts, either as is or compressed.
package filewriter

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/andybalholm/brotli"
)

// Compressor describes a compression method.
type Compressor struct {
	Method string
	Ext    string
	New    func(w io.Writer) io.WriteCloser
}

// The gzip header carries no name or modification time,
// so the same input always yields the same bytes.
var gzipCompressor = &Compressor{
	Method: "gzip",
	Ext:    "gz",
	New: func(w io.Writer) io.WriteCloser {
		z, err := gzip.NewWriterLevel(w, gzipLevel)
		if err != nil {
			panic(err.Error()) // shouldn't happen
		}
		return z
	},
}

var brotliCompressor = &Compressor{
	Method: "br",
	Ext:    "br",
	New: func(w io.Writer) io.WriteCloser {
		return brotli.NewWriterLevel(w, brotliLevel)
	},
}

const (
	gzipLevel   = 9
	brotliLevel = 11
)

// DefaultMethods are used when compression is enabled with no methods given.
var DefaultMethods = []string{"gzip"}

// CompressorFor returns a compressor by method name.
func CompressorFor(method string) (*Compressor, error) {
	switch method {
	case "gzip":
		return gzipCompressor, nil
	case "br":
		return brotliCompressor, nil
	default:
		return nil, fmt.Errorf("unknown compression method: %q", method)
	}
}

// FileWriter writes artifacts. Without compressors it writes data as is;
// with compressors it writes one compressed file per method instead.
type FileWriter struct {
	compressors []*Compressor
}

// New returns a new FileWriter. If compress is false, methods are ignored.
func New(compress bool, methods []string) (*FileWriter, error) {
	if !compress {
		return &FileWriter{}, nil
	}
	if len(methods) == 0 {
		methods = DefaultMethods
	}
	compressors := make([]*Compressor, 0, len(methods))
	seen := make(map[string]bool)
	for _, v := range methods {
		if seen[v] {
			continue
		}
		seen[v] = true
		c, err := CompressorFor(v)
		if err != nil {
			return nil, err
		}
		compressors = append(compressors, c)
	}
	return &FileWriter{compressors: compressors}, nil
}

// Compressed returns true if the writer compresses data.
func (f *FileWriter) Compressed() bool {
	return len(f.compressors) > 0
}

// Names returns names of files that WriteFile writes for filename.
func (f *FileWriter) Names(filename string) []string {
	if !f.Compressed() {
		return []string{filename}
	}
	names := make([]string, len(f.compressors))
	for i, c := range f.compressors {
		names[i] = filename + "." + c.Ext
	}
	return names
}

// Compress returns data compressed with c.
func Compress(c *Compressor, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	z := c.New(&buf)
	if _, err := z.Write(data); err != nil {
		z.Close()
		return nil, err
	}
	if err := z.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFile writes data to filename, removing it on failure
// so that no partial artifact is left behind.
func writeFile(filename string, data []byte) (err error) {
	out, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(filename)
		}
	}()
	_, err = out.Write(data)
	return err
}

// WriteFile writes data to filename or, when compressing, to filename
// plus the extension of each compression method. It returns names of
// written files and the total number of bytes written.
func (f *FileWriter) WriteFile(filename string, data []byte) (names []string, size int64, err error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, 0, err
	}
	if !f.Compressed() {
		if err := writeFile(filename, data); err != nil {
			return nil, 0, err
		}
		return []string{filename}, int64(len(data)), nil
	}
	// Compress everything first: if one method fails, nothing is written.
	blobs := make([][]byte, len(f.compressors))
	for i, c := range f.compressors {
		b, err := Compress(c, data)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", c.Method, err)
		}
		blobs[i] = b
	}
	names = f.Names(filename)
	for i, name := range names {
		if err := writeFile(name, blobs[i]); err != nil {
			return names[:i], size, err
		}
		size += int64(len(blobs[i]))
	}
	return names, size, nil
}

func copyFile(outfile, infile string) (err error) {
	// Remove old outfile, ignoring errors.
	os.Remove(outfile)

	// Try making hard link instead of copying.
	if err := os.Link(infile, outfile); err == nil {
		return nil // success
	}

	// Failed to create hard link, so try copying content.
	in, err := os.Open(infile)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(outfile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(outfile)
		}
	}()
	_, err = io.Copy(out, in)
	return err
}

// CopyFile copies infile to outfile verbatim, never compressing it.
func (f *FileWriter) CopyFile(outfile, infile string) error {
	if err := os.MkdirAll(filepath.Dir(outfile), 0755); err != nil {
		return err
	}
	return copyFile(outfile, infile)
}
