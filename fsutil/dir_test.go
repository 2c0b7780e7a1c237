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

package fsutil

import (
	"io/fs"
	"os"
	"testing"
)

func TestVisitDirVisitsInLexicalOrder(t *testing.T) {
	names := []string{"10_patch.npy", "1_patch.npy", "2_label.npy"}
	tmp := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(tmp+"/"+n, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	err := VisitDir(os.DirFS(tmp), ".", func(d DirEntry) error {
		got = append(got, d.Name())
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"10_patch.npy", "1_patch.npy", "2_label.npy"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestVisitDirStopsOnSkipDir(t *testing.T) {
	tmp := t.TempDir()
	for _, n := range []string{"a", "b", "c"} {
		if err := os.WriteFile(tmp+"/"+n, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	var visited int
	err := VisitDir(os.DirFS(tmp), ".", func(d DirEntry) error {
		visited++
		if d.Name() == "b" {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if visited != 2 {
		t.Fatalf("visited %d entries, want 2 (stopped at SkipDir)", visited)
	}
}

func TestVisitDirPropagatesError(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(tmp+"/a", nil, 0o644); err != nil {
		t.Fatal(err)
	}
	sentinel := fs.ErrInvalid
	err := VisitDir(os.DirFS(tmp), ".", func(d DirEntry) error {
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("got %v, want %v", err, sentinel)
	}
}

func TestVisitDirMissingDirectory(t *testing.T) {
	tmp := t.TempDir()
	err := VisitDir(os.DirFS(tmp), "does-not-exist", func(d DirEntry) error {
		t.Fatal("fn should not be called for a missing directory")
		return nil
	})
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}
