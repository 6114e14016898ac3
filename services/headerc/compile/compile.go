// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package compile drives the whole pipeline: parse, bind, lower,
// write. It is the only package with I/O side effects besides jar and
// cache; everything between reading sources and writing the output
// archive is pure.
package compile

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/bind"
	"github.com/headwindhq/headwind/services/headerc/cache"
	"github.com/headwindhq/headwind/services/headerc/classfile"
	"github.com/headwindhq/headwind/services/headerc/diag"
	"github.com/headwindhq/headwind/services/headerc/jar"
	"github.com/headwindhq/headwind/services/headerc/lower"
	"github.com/headwindhq/headwind/services/headerc/parse"
	"github.com/headwindhq/headwind/services/headerc/telemetry"
)

// SourceFile is one input: a path plus optional in-memory content.
// When Content is nil the file is read from disk.
type SourceFile struct {
	Path    string
	Content []byte
}

// Options configures one compilation.
type Options struct {
	Sources       []SourceFile
	ClassPath     []string // archive paths, searched after BootClassPath
	BootClassPath []string // platform archive paths, searched first
	OutputJar     string   // "" skips archive writing
	Release       int      // source/target release; 0 means the default (major 52)

	CacheDir string // "" disables the class-path byte cache

	Logger  *slog.Logger       // nil uses slog.Default
	Metrics *telemetry.Metrics // nil disables metrics
}

// Result reports one compilation's outcome. Entries is populated only
// when there were no diagnostics.
type Result struct {
	CompilationID string
	Diagnostics   []diag.Diagnostic
	Entries       []jar.Entry
	ArchiveWrite  bool
}

// OK reports whether compilation succeeded.
func (r *Result) OK() bool {
	return len(r.Diagnostics) == 0
}

// releaseMajor maps a release number to a class-file major version;
// the offset is fixed by the platform (release 8 = major 52).
func releaseMajor(release int) uint16 {
	if release == 0 {
		return classfile.DefaultMajorVersion
	}
	return uint16(release + 44)
}

// Compile runs the pipeline. Diagnostics are compilation errors and
// appear in the Result; the returned error reports environmental
// faults only (unreadable input, undecodable archive, failed write).
func Compile(ctx context.Context, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	res := &Result{CompilationID: uuid.NewString()}
	log = log.With("compilation_id", res.CompilationID)
	sink := diag.NewSink()

	defer func() {
		if opts.Metrics == nil {
			return
		}
		for kind, n := range sink.CountByKind() {
			opts.Metrics.Diagnostics.WithLabelValues(kind.String()).Add(float64(n))
		}
	}()

	units, err := parseSources(ctx, opts, sink, log)
	if err != nil {
		countRun(opts.Metrics, "fault")
		return nil, err
	}

	cp, closeCache, err := openClassPath(opts, log)
	if err != nil {
		countRun(opts.Metrics, "fault")
		return nil, err
	}
	defer closeCache()

	start := time.Now()
	bound := bind.Bind(units, cp, sink, log)
	observe(opts.Metrics, "bind", start)

	if sink.HasErrors() {
		res.Diagnostics = sink.Diagnostics()
		countRun(opts.Metrics, "errors")
		log.Info("compilation failed", "diagnostics", len(res.Diagnostics))
		return res, nil
	}

	start = time.Now()
	lowered := lower.Lower(bound, lower.Options{MajorVersion: releaseMajor(opts.Release)})
	for _, lc := range lowered {
		b, werr := classfile.Write(lc.File)
		if werr != nil {
			countRun(opts.Metrics, "fault")
			return nil, errors.Wrapf(werr, "emitting %s", lc.Sym)
		}
		res.Entries = append(res.Entries, jar.Entry{Name: string(lc.Sym), Bytes: b})
	}
	observe(opts.Metrics, "emit", start)
	if opts.Metrics != nil {
		opts.Metrics.ClassesEmitted.Add(float64(len(res.Entries)))
	}

	if opts.OutputJar != "" {
		if err := jar.Write(opts.OutputJar, res.Entries); err != nil {
			countRun(opts.Metrics, "fault")
			return nil, err
		}
		res.ArchiveWrite = true
	}
	countRun(opts.Metrics, "ok")
	log.Info("compilation finished", "classes", len(res.Entries), "archive", opts.OutputJar)
	return res, nil
}

func parseSources(ctx context.Context, opts Options, sink *diag.Sink, log *slog.Logger) ([]*ast.CompUnit, error) {
	parser := parse.NewParser()
	units := make([]*ast.CompUnit, 0, len(opts.Sources))
	start := time.Now()
	for _, src := range opts.Sources {
		content := src.Content
		if content == nil {
			b, err := os.ReadFile(src.Path)
			if err != nil {
				return nil, errors.Wrapf(err, "reading source %s", src.Path)
			}
			content = b
		}
		unit, err := parser.Parse(ctx, content, src.Path, sink)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", src.Path)
		}
		units = append(units, unit)
	}
	observe(opts.Metrics, "parse", start)
	log.Debug("sources parsed", "units", len(units))
	return units, nil
}

// openClassPath assembles the byte lookup: boot archives first, then
// the user class path, optionally fronted by the badger cache.
func openClassPath(opts Options, log *slog.Logger) (bind.ClassPath, func(), error) {
	paths := append(append([]string{}, opts.BootClassPath...), opts.ClassPath...)
	lookup, err := jar.ReadClassPath(paths)
	if err != nil {
		return nil, func() {}, err
	}
	log.Debug("class path loaded", "archives", len(paths), "classes", len(lookup))

	if opts.CacheDir == "" {
		return lookup, func() {}, nil
	}
	store, err := cache.Open(opts.CacheDir)
	if err != nil {
		// The cache is an optimization; a broken cache directory is
		// not a compilation fault.
		log.Warn("class-path cache unavailable", "error", err)
		return lookup, func() {}, nil
	}
	return cachingClassPath(lookup, store, log), func() { store.Close() }, nil
}

// cachingClassPath front-loads lookups through the byte cache. The
// in-process lookup map is already fast; the cache pays off for large
// class paths read across runs, where decode work dominates.
func cachingClassPath(inner jar.Lookup, store *cache.Cache, log *slog.Logger) bind.ClassPath {
	return bind.ClassPathFunc(func(name string) ([]byte, bool) {
		key := cache.Key("classpath", 0, name)
		if b, ok, err := store.Get(key); err == nil && ok {
			return b, true
		}
		b, ok := inner.Bytes(name)
		if ok {
			if err := store.Put(key, b); err != nil {
				log.Warn("cache write failed", "class", name, "error", err)
			}
		}
		return b, ok
	})
}

func countRun(m *telemetry.Metrics, outcome string) {
	if m != nil {
		m.CompileRuns.WithLabelValues(outcome).Inc()
	}
}

func observe(m *telemetry.Metrics, phase string, start time.Time) {
	if m != nil {
		m.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	}
}
