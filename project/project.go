// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package project ties configuration, filters and the file writer
// together and runs the minifier for a project directory.
package project

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/reanimator/wwwmin/assets"
	"github.com/reanimator/wwwmin/buildhook"
	"github.com/reanimator/wwwmin/filewriter"
	"github.com/reanimator/wwwmin/filters"
	"github.com/reanimator/wwwmin/fspoll"
	"github.com/reanimator/wwwmin/utils"
)

const (
	ConfigFileName = "wwwmin.yml"

	DefaultInputDir  = "html"
	DefaultOutputDir = "html_minified"
	DefaultTarget    = "buildfs"

	// DefaultFilter minifies files whose extension has no filter.
	DefaultFilter = "htmlmin"
)

type Config struct {
	Input       string                 `yaml:"input"`
	Output      string                 `yaml:"output"`
	Target      string                 `yaml:"target"`
	Compress    bool                   `yaml:"compress"`
	Compression []string               `yaml:"compression"`
	Clean       bool                   `yaml:"clean"`
	Jobs        int                    `yaml:"jobs"`
	Minify      filters.Options        `yaml:"minify"`
	Filters     map[string]interface{} `yaml:"filters"`
	Copy        []string               `yaml:"copy"`
	Ignore      []string               `yaml:"ignore"`
}

// DefaultConfig returns configuration used when there's no config file.
func DefaultConfig() *Config {
	return &Config{
		Input:       DefaultInputDir,
		Output:      DefaultOutputDir,
		Target:      DefaultTarget,
		Compression: filewriter.DefaultMethods,
		Clean:       true,
		Jobs:        1,
		Minify:      filters.DefaultOptions,
	}
}

// ReadConfig reads configuration from filename on top of the defaults.
// A missing file is not an error.
func ReadConfig(filename string) (*Config, error) {
	c := DefaultConfig()
	if err := utils.UnmarshallYAMLFile(filename, c); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	}
	// Set defaults.
	if c.Input == "" {
		c.Input = DefaultInputDir
	}
	if c.Output == "" {
		c.Output = DefaultOutputDir
	}
	if c.Target == "" {
		c.Target = DefaultTarget
	}
	if len(c.Compression) == 0 {
		c.Compression = filewriter.DefaultMethods
	}
	if c.Jobs < 1 {
		c.Jobs = 1
	}
	return c, nil
}

type Project struct {
	BaseDir string
	Config  *Config
	Filters *filters.Collection
	Writer  *filewriter.FileWriter
	Log     *log.Logger

	watcher *fspoll.Watcher
}

// Open opens a project in dir, reading its config file if there is one.
func Open(dir string) (*Project, error) {
	conf, err := ReadConfig(filepath.Join(dir, ConfigFileName))
	if err != nil {
		return nil, err
	}
	return New(dir, conf)
}

// New returns a project in dir with the given configuration.
func New(dir string, conf *Config) (p *Project, err error) {
	p = &Project{
		BaseDir: dir,
		Config:  conf,
		Log:     log.New(log.Writer(), "", log.Flags()),
	}
	if err := p.checkDirs(); err != nil {
		return nil, err
	}
	if err := p.LoadFilters(); err != nil {
		return nil, err
	}
	if err := p.LoadWriter(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Project) LoadFilters() error {
	c := filters.NewCollection(p.Config.Minify)
	if err := c.Add(filters.DefaultKey, DefaultFilter, nil); err != nil {
		return err
	}
	// Sorted, so that errors are reported the same way every time.
	keys := make([]string, 0, len(p.Config.Filters))
	for k := range p.Config.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, ext := range keys {
		key := ext
		if key == "*" {
			key = filters.DefaultKey
		}
		if err := c.AddFromYAML(key, p.Config.Filters[ext]); err != nil {
			return err
		}
	}
	p.Filters = c
	return nil
}

func (p *Project) LoadWriter() error {
	w, err := filewriter.New(p.Config.Compress, p.Config.Compression)
	if err != nil {
		return err
	}
	p.Writer = w
	return nil
}

func (p *Project) path(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(p.BaseDir, dir)
}

// InputDir returns the absolute or base-relative input directory.
func (p *Project) InputDir() string { return p.path(p.Config.Input) }

// OutputDir returns the absolute or base-relative output directory.
func (p *Project) OutputDir() string { return p.path(p.Config.Output) }

// checkDirs returns an error if cleaning the output directory
// would remove the project or its input files.
func (p *Project) checkDirs() error {
	base, err := filepath.Abs(p.BaseDir)
	if err != nil {
		return err
	}
	in, err := filepath.Abs(p.InputDir())
	if err != nil {
		return err
	}
	out, err := filepath.Abs(p.OutputDir())
	if err != nil {
		return err
	}
	if in == out {
		return fmt.Errorf("input and output directories are the same: %s", p.InputDir())
	}
	for _, dir := range []string{base, in} {
		if within(out, dir) {
			return fmt.Errorf("output directory %s contains %s", p.OutputDir(), dir)
		}
	}
	return nil
}

// within reports whether path is dir or is inside it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Processor returns a processor configured for the project.
func (p *Project) Processor() *assets.Processor {
	return &assets.Processor{
		Filters: p.Filters,
		Writer:  p.Writer,
		Copy:    p.Config.Copy,
		Ignore:  p.Config.Ignore,
		Jobs:    p.Config.Jobs,
		Log:     p.Log,
	}
}

// Check returns an error if the input directory is missing or
// any configured minifier cannot run.
func (p *Project) Check() error {
	if !utils.DirExist(p.InputDir()) {
		return fmt.Errorf("input directory %s does not exist", p.InputDir())
	}
	return p.Filters.Check()
}

// Build cleans the output directory, if configured, and minifies
// every input file into it.
func (p *Project) Build() (*assets.Report, error) {
	t := time.Now()
	defer func() {
		p.Log.Printf("* Build in %s", time.Since(t))
	}()

	if err := p.Check(); err != nil {
		return nil, err
	}
	if p.Config.Clean {
		if err := p.Clean(); err != nil {
			return nil, err
		}
	}
	report, err := p.Processor().Process(p.InputDir(), p.OutputDir())
	if err != nil {
		return nil, err
	}
	p.Log.Printf("* %s", report)
	return report, nil
}

// Clean removes the output directory.
func (p *Project) Clean() error {
	if err := p.checkDirs(); err != nil {
		return err
	}
	p.Log.Printf("* Cleaning %s.", p.OutputDir())
	return os.RemoveAll(p.OutputDir())
}

// PostAction is a build hook action which opens the project in
// env.ProjectDir and builds it.
func PostAction(env *buildhook.Env) error {
	p, err := Open(env.ProjectDir)
	if err != nil {
		return err
	}
	return p.PostAction(env)
}

// PostAction builds the project, logging to env's logger.
func (p *Project) PostAction(env *buildhook.Env) error {
	p.Log = env.Logger()
	_, err := p.Build()
	return err
}

// Register attaches the project's PostAction to its target in r.
func (p *Project) Register(r *buildhook.Registry) {
	r.AddPostAction(p.Config.Target, p.PostAction)
}

// StartWatching rebuilds the project whenever files in the input
// directory change, polling every interval.
func (p *Project) StartWatching(interval time.Duration) error {
	w, err := fspoll.Watch(p.InputDir(), append([]string{"*~", ".DS_Store"}, p.Config.Ignore...), interval, 0)
	if err != nil {
		return err
	}
	p.watcher = w
	go func() {
		for {
			select {
			case <-w.Done():
				return
			case <-w.Change:
				p.Log.Printf("W change in %s", p.InputDir())
				if _, err := p.Build(); err != nil {
					p.Log.Printf("! build error: %s", err)
				}
			case err := <-w.Error:
				p.Log.Printf("! watcher error: %s", err)
			}
		}
	}()
	p.Log.Printf("* Watching %s for changes.", p.InputDir())
	return nil
}

func (p *Project) StopWatching() {
	if p.watcher != nil {
		p.watcher.Close()
		p.watcher = nil
	}
}
