// Copyright 2013 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"time"

	"github.com/reanimator/wwwmin/buildhook"
	"github.com/reanimator/wwwmin/project"
)

var (
	fDir        = flag.String("dir", "", "project directory (default: current directory)")
	fCompress   = flag.Bool("compress", false, "write gzip-compressed artifacts (overrides config)")
	fNoClean    = flag.Bool("noclean", false, "don't delete output directory before building")
	fJobs       = flag.Int("jobs", 0, "number of files to process in parallel (overrides config)")
	fInterval   = flag.Duration("interval", time.Second, "polling interval for watch")
	fCPUProfile = flag.String("cpuprofile", "", "(debug) write CPU profile to file")
)

var Usage = func() {
	fmt.Printf(`usage: wwwmin command [options]

Commands:
  post TARGET  - run post-actions of a completed build target
  build        - minify input directory into output directory
  check        - check that configured minifiers are available
  watch        - build, then rebuild on every change
  clean        - remove output directory

Options:
`)
	flag.PrintDefaults()
}

func main() {
	log.SetFlags(0)
	flag.Usage = Usage

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(2)
	}
	command := os.Args[1]
	os.Args = os.Args[1:]

	flag.Parse()

	if *fCPUProfile != "" {
		f, err := os.Create(*fCPUProfile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	dir := *fDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("! os.Getwd(): %s", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		log.Fatalf("! %s", err)
	}

	if err := run(command, dir); err != nil {
		log.Printf("! %s error: %s", command, err)
		pprof.StopCPUProfile()
		os.Exit(1)
	}
}

// openProject opens the project and applies command-line overrides.
func openProject(dir string) (*project.Project, error) {
	conf, err := project.ReadConfig(filepath.Join(dir, project.ConfigFileName))
	if err != nil {
		return nil, err
	}
	if *fCompress {
		conf.Compress = true
	}
	if *fNoClean {
		conf.Clean = false
	}
	if *fJobs > 0 {
		conf.Jobs = *fJobs
	}
	return project.New(dir, conf)
}

func run(command, dir string) error {
	p, err := openProject(dir)
	if err != nil {
		return fmt.Errorf("cannot open project: %w", err)
	}
	switch command {
	case "post":
		if flag.NArg() != 1 {
			return errors.New("post needs a target name")
		}
		p.Register(buildhook.Default)
		env := &buildhook.Env{ProjectDir: dir, Target: flag.Arg(0), Log: p.Log}
		n := buildhook.Default.Len(env.Target)
		if n == 0 {
			log.Printf("* Nothing to do after %s.", env.Target)
			return nil
		}
		log.Printf("* Running %d post-action(s) after %s.", n, env.Target)
		return buildhook.Default.RunPostActions(env)
	case "build":
		_, err := p.Build()
		return err
	case "check":
		if err := p.Check(); err != nil {
			return err
		}
		log.Printf("* Minifiers are available.")
		return nil
	case "watch":
		if _, err := p.Build(); err != nil {
			log.Printf("! build error: %s", err)
		}
		if err := p.StartWatching(*fInterval); err != nil {
			return err
		}
		defer p.StopWatching()
		log.Printf("Watching for changes. Press Ctrl+C to quit.")
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		<-sig
		return nil
	case "clean":
		return p.Clean()
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %s", command)
	}
}
