// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package jar reads class-path archives and writes the output archive.
//
// Reading loads every .class entry of each archive into a name-keyed
// lookup; earlier archives win on duplicate names, matching class-path
// precedence. Writing is deterministic: entries are stored
// uncompressed in lexicographic order with a fixed timestamp, so two
// runs over identical inputs produce identical archive bytes.
package jar

import (
	"archive/zip"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// classSuffix is the archive entry suffix for class files.
const classSuffix = ".class"

// fixedModTime is the timestamp stamped on every written entry; zip
// cannot represent anything before 1980.
var fixedModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Lookup maps binary class names to raw class bytes.
type Lookup map[string][]byte

// Bytes makes Lookup satisfy the binder's class-path contract.
func (l Lookup) Bytes(name string) ([]byte, bool) {
	b, ok := l[name]
	return b, ok
}

// ReadClassPath loads the .class entries of the given archives in
// order. Boot archives should be listed before user archives so their
// entries take precedence.
func ReadClassPath(paths []string) (Lookup, error) {
	out := make(Lookup)
	for _, path := range paths {
		if err := readArchive(path, out); err != nil {
			return nil, errors.Wrapf(err, "reading class path entry %s", path)
		}
	}
	return out, nil
}

func readArchive(path string, out Lookup) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, classSuffix) {
			continue
		}
		name := strings.TrimSuffix(f.Name, classSuffix)
		if _, taken := out[name]; taken {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return errors.Wrapf(err, "opening entry %s", f.Name)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return errors.Wrapf(err, "reading entry %s", f.Name)
		}
		out[name] = b
	}
	return nil
}

// Entry is one class file destined for the output archive.
type Entry struct {
	Name  string // binary class name, without suffix
	Bytes []byte
}

// Write creates the output archive at path. The file is always
// created, even for an empty entry list; callers skip the call
// entirely on compilation errors.
func Write(path string, entries []Entry) error {
	sorted := append([]Entry{}, entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating output archive %s", path)
	}
	zw := zip.NewWriter(f)
	for _, e := range sorted {
		hdr := &zip.FileHeader{
			Name:     e.Name + classSuffix,
			Method:   zip.Store,
			Modified: fixedModTime,
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			zw.Close()
			f.Close()
			return errors.Wrapf(err, "creating entry %s", hdr.Name)
		}
		if _, err := w.Write(e.Bytes); err != nil {
			zw.Close()
			f.Close()
			return errors.Wrapf(err, "writing entry %s", hdr.Name)
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return errors.Wrap(err, "finalizing output archive")
	}
	return errors.Wrap(f.Close(), "closing output archive")
}
