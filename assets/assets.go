// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package assets minifies a directory of HTML sources into artifacts
// for the filesystem image.
package assets

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/reanimator/wwwmin/filewriter"
	"github.com/reanimator/wwwmin/filters"
	"github.com/reanimator/wwwmin/markup"
	"github.com/reanimator/wwwmin/utils"
)

// Source is a file in the input directory.
type Source struct {
	Name string // file name, also the artifact name
	Path string
}

// Artifact is a file written to the output directory.
type Artifact struct {
	Path string
	Size int64
}

// Result is the outcome of processing one source.
//
// A source which failed to parse has Err set and no artifacts.
type Result struct {
	Source    Source
	Artifacts []Artifact
	Copied    bool
	InSize    int64
	Err       error
}

// OK returns true if the source produced its artifacts.
func (r *Result) OK() bool {
	return r.Err == nil
}

// Processor turns sources into artifacts.
type Processor struct {
	Filters *filters.Collection
	Writer  *filewriter.FileWriter
	Copy    []string // extensions of files copied verbatim
	Ignore  []string // globs of file names to skip
	Jobs    int      // number of parallel workers, sequential if <= 1
	Log     *log.Logger
}

// NewProcessor returns a processor which minifies every file with
// htmlmin and writes plain or gzip-compressed artifacts.
func NewProcessor(opts filters.Options, compress bool) (*Processor, error) {
	c := filters.NewCollection(opts)
	if err := c.Add(filters.DefaultKey, "htmlmin", nil); err != nil {
		return nil, err
	}
	w, err := filewriter.New(compress, filewriter.DefaultMethods)
	if err != nil {
		return nil, err
	}
	return &Processor{Filters: c, Writer: w}, nil
}

// Process minifies every file in inputDir into outputDir.
//
// Files which fail to parse are reported and skipped. Any other error
// aborts processing and is returned.
func Process(inputDir, outputDir string, opts filters.Options, compress bool) (*Report, error) {
	p, err := NewProcessor(opts, compress)
	if err != nil {
		return nil, err
	}
	return p.Process(inputDir, outputDir)
}

func (p *Processor) logf(format string, args ...interface{}) {
	if p.Log != nil {
		p.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Sources returns files directly inside inputDir, sorted by name.
// Subdirectories, temporary files and ignored files are skipped.
func (p *Processor) Sources(inputDir string) ([]Source, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}
	sources := make([]Source, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || utils.IsIgnoredFile(e.Name()) {
			continue
		}
		ignored, err := utils.MatchAny(p.Ignore, e.Name())
		if err != nil {
			return nil, fmt.Errorf("bad ignore pattern: %w", err)
		}
		if ignored {
			continue
		}
		sources = append(sources, Source{
			Name: e.Name(),
			Path: filepath.Join(inputDir, e.Name()),
		})
	}
	return sources, nil
}

// Process minifies every file in inputDir into outputDir,
// creating outputDir if needed.
func (p *Processor) Process(inputDir, outputDir string) (*Report, error) {
	// Don't touch anything if a minifier is missing.
	if err := p.Filters.Check(); err != nil {
		return nil, fmt.Errorf("minifier is not available: %w", err)
	}
	sources, err := p.Sources(inputDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}
	results := make([]*Result, len(sources))
	if p.Jobs <= 1 {
		for i, src := range sources {
			r, err := p.ProcessFile(src, outputDir)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return &Report{Results: results}, nil
	}
	// Each job writes only its own slot of results.
	pool := utils.NewPool(p.Jobs, func(j interface{}) error {
		i := j.(int)
		r, err := p.ProcessFile(sources[i], outputDir)
		if err != nil {
			return err
		}
		results[i] = r
		return nil
	})
	for i := range sources {
		pool.Add(i)
	}
	if err := pool.Err(); err != nil {
		return nil, err
	}
	return &Report{Results: results}, nil
}

// ProcessFile turns a single source into artifacts in outputDir.
// A source which fails to parse yields a result with Err set
// and a nil error.
func (p *Processor) ProcessFile(src Source, outputDir string) (*Result, error) {
	r := &Result{Source: src}
	outfile := filepath.Join(outputDir, src.Name)

	if utils.HasFileExt(src.Name, p.Copy) {
		if err := p.Writer.CopyFile(outfile, src.Path); err != nil {
			return nil, err
		}
		fi, err := os.Stat(outfile)
		if err != nil {
			return nil, err
		}
		r.Copied = true
		r.InSize = fi.Size()
		r.Artifacts = []Artifact{{Path: outfile, Size: fi.Size()}}
		p.logf("C %s → %s", src.Name, outfile)
		return r, nil
	}

	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, err
	}
	r.InSize = int64(len(data))

	out, err := p.Filters.ApplyFilter(filepath.Ext(src.Name), data)
	if err != nil {
		if markup.IsSyntaxError(err) {
			r.Err = markup.WithName(err, src.Name)
			p.logf("! %s", r.Err)
			return r, nil
		}
		return nil, fmt.Errorf("%s: %w", src.Name, err)
	}

	names, _, err := p.Writer.WriteFile(outfile, out)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		fi, err := os.Stat(name)
		if err != nil {
			return nil, err
		}
		r.Artifacts = append(r.Artifacts, Artifact{Path: name, Size: fi.Size()})
		p.logf("M %s → %s", src.Name, name)
	}
	return r, nil
}
