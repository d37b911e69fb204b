// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package filters implements minification filters.
package filters

import (
	"fmt"
	"sort"
	"strings"
)

// Options configures HTML filters.
type Options struct {
	// MinifyJS also minifies contents of script tags.
	MinifyJS bool `yaml:"minify_js"`
	// MinifyCSS also minifies contents of style tags and attributes.
	MinifyCSS bool `yaml:"minify_css"`
	// KeepInputTypeTextAttr preserves type="text" on input elements,
	// which some minifiers strip as a default value.
	KeepInputTypeTextAttr bool `yaml:"keep_input_type_text_attr"`
}

// DefaultOptions enables everything.
var DefaultOptions = Options{
	MinifyJS:              true,
	MinifyCSS:             true,
	KeepInputTypeTextAttr: true,
}

// Filter is an interface declaring a filter.
type Filter interface {
	Name() string
	Apply([]byte) ([]byte, error)
}

// Checker is implemented by filters which depend on something outside
// of the program, such as an external command.
type Checker interface {
	// Check returns an error if the filter cannot run.
	Check() error
}

// Maker is a type of function which accepts arguments
// for filter and returns a new instance of the filter.
type Maker func(args []string, opts Options) (Filter, error)

// makers stores builtin filter makers addressed by their names.
var makers = make(map[string]Maker)

// Register registers a new filter maker.
func Register(name string, maker Maker) {
	makers[name] = maker
}

// Names returns sorted names of registered filters.
func Names() []string {
	names := make([]string, 0, len(makers))
	for k := range makers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Make creates a new filter by name with the given arguments.
func Make(name string, args []string, opts Options) (Filter, error) {
	maker := makers[name]
	if maker == nil {
		return nil, fmt.Errorf("filter %q not found (available: %s)", name, strings.Join(Names(), ", "))
	}
	return maker(args, opts)
}

// DefaultKey is the collection key of the filter used for files
// whose extension has no filter of its own.
const DefaultKey = ""

// Collection is a collection of filters addressed by file extension.
type Collection struct {
	filters map[string]Filter
	opts    Options
}

// NewCollection returns a new collection creating filters with the given options.
func NewCollection(opts Options) *Collection {
	return &Collection{
		filters: make(map[string]Filter),
		opts:    opts,
	}
}

// Add adds the filter to collection to be addressable by key.
func (c *Collection) Add(key string, filterName string, args []string) error {
	f, err := Make(filterName, args, c.opts)
	if err != nil {
		return err
	}
	c.filters[key] = f
	return nil
}

// AddFromYAML parses a `filters` value (line) and adds corresponding filters.
func (c *Collection) AddFromYAML(key string, line interface{}) error {
	switch x := line.(type) {
	case string:
		return c.Add(key, x, nil)
	case []interface{}:
		if len(x) == 0 {
			return fmt.Errorf("failed to parse filters for %q: empty array", key)
		}
		args := make([]string, len(x))
		for i, v := range x {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("failed to parse filters for %q: not an array of strings", key)
			}
			args[i] = s
		}
		return c.Add(key, args[0], args[1:])
	default:
		return fmt.Errorf("failed to parse filters for %q: not a string or array", key)
	}
}

// Get returns a filter for key.
// It returns nil if the filter wasn't found.
func (c *Collection) Get(key string) Filter {
	return c.filters[key]
}

// Lookup returns a filter for key or, if there's none, the default filter.
func (c *Collection) Lookup(key string) Filter {
	if f := c.Get(key); f != nil {
		return f
	}
	return c.filters[DefaultKey]
}

// ApplyFilter applies a filter found by key to the given data.
// If the filter wasn't found, returns the original data.
func (c *Collection) ApplyFilter(key string, in []byte) (out []byte, err error) {
	f := c.Lookup(key)
	if f == nil {
		return in, nil
	}
	return f.Apply(in)
}

// Check verifies that every filter in the collection can run.
func (c *Collection) Check() error {
	keys := make([]string, 0, len(c.filters))
	for k := range c.filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ch, ok := c.filters[k].(Checker)
		if !ok {
			continue
		}
		if err := ch.Check(); err != nil {
			return fmt.Errorf("filter %s: %w", c.filters[k].Name(), err)
		}
	}
	return nil
}
