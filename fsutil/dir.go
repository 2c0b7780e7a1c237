// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package fsutil provides the directory-listing helper the file
// storage backend uses to enumerate its one-file-per-bucket layout,
// trimmed from a general-purpose seek/pattern/walk package down to
// the single flat-directory visit store/file.go actually needs.
package fsutil

import "io/fs"

// VisitDirFn is called by VisitDir for each entry in a directory.
type VisitDirFn func(d DirEntry) error

// VisitDir calls fn for each entry in the directory specified by
// name, visiting each entry in lexicographical order.
//
// If fn returns fs.SkipDir, VisitDir stops early and returns a nil
// error.
func VisitDir(f fs.FS, name string, fn VisitDirFn) error {
	list, err := fs.ReadDir(f, name)
	if err != nil {
		return err
	}
	for i := range list {
		if err := fn(list[i]); err != nil {
			if err == fs.SkipDir {
				break
			}
			return err
		}
	}
	return nil
}

// A DirEntry is an entry from a directory visited by VisitDir. This
// is analogous to fs.DirEntry without the Type() method.
type DirEntry interface {
	// Name is the file name of the file or directory without
	// additional path elements.
	Name() string
	// IsDir returns whether the entry is a directory.
	IsDir() bool
	// Info returns the corresponding fs.FileInfo.
	Info() (fs.FileInfo, error)
}
