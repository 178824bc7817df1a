/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package groupstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nabbar/vsbackup/internal/vslog"
)

func TestCreateAndCommitBackup(t *testing.T) {
	root := t.TempDir()
	s, err := New(root, 0, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var groupsCreated []string
	s.Obs.OnGroupCreated = func(_ vslog.Logger, group string) error {
		groupsCreated = append(groupsCreated, group)
		return nil
	}

	tick := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return tick }

	group, name, workSuffix, path, obsErr, err := s.CreateBackup(2)
	if err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}
	if obsErr != nil {
		t.Fatalf("unexpected observer error: %v", obsErr)
	}
	if group != "2026.01.01" {
		t.Errorf("group = %q", group)
	}
	if name != "2026.01.01-10:00:00" {
		t.Errorf("name = %q", name)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("in-progress dir not created: %v", statErr)
	}
	if filepath.Base(path)[0] != '.' {
		t.Errorf("in-progress dir must start with a dot, got %q", path)
	}

	if _, err := s.CommitBackup(group, name, workSuffix); err != nil {
		t.Fatalf("CommitBackup: %v", err)
	}

	committed, err := s.Backups(group, true)
	if err != nil {
		t.Fatalf("Backups: %v", err)
	}
	if len(committed) != 1 || committed[0] != name {
		t.Errorf("committed = %v", committed)
	}
	if len(groupsCreated) != 1 || groupsCreated[0] != group {
		t.Errorf("groupsCreated = %v", groupsCreated)
	}
}

func TestCreateBackupStartsNewGroupWhenFull(t *testing.T) {
	root := t.TempDir()
	s, err := New(root, 0, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	day1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day1 }
	group, name, workSuffix, _, _, err := s.CreateBackup(1)
	if err != nil {
		t.Fatalf("CreateBackup 1: %v", err)
	}
	if _, err := s.CommitBackup(group, name, workSuffix); err != nil {
		t.Fatalf("CommitBackup 1: %v", err)
	}

	day2 := time.Date(2026, 1, 2, 11, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day2 }
	group2, _, _, _, _, err := s.CreateBackup(1)
	if err != nil {
		t.Fatalf("CreateBackup 2: %v", err)
	}
	if group2 == group {
		t.Errorf("expected a new group once max_backups reached, got same group %q", group)
	}
}

func TestCancelBackupRemovesInProgressDir(t *testing.T) {
	root := t.TempDir()
	s, err := New(root, 0, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	group, name, workSuffix, path, _, err := s.CreateBackup(10)
	if err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}
	s.CancelBackup(group, name, workSuffix)
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("in-progress dir should have been removed")
	}
}

func TestRotateGroupsKeepsNewestOnly(t *testing.T) {
	root := t.TempDir()
	s, err := New(root, 0, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var names []string
	for day := 1; day <= 3; day++ {
		tick := time.Date(2026, 1, day, 10, 0, 0, 0, time.UTC)
		s.now = func() time.Time { return tick }
		group, name, workSuffix, _, _, err := s.CreateBackup(1)
		if err != nil {
			t.Fatalf("CreateBackup day %d: %v", day, err)
		}
		if _, err := s.CommitBackup(group, name, workSuffix); err != nil {
			t.Fatalf("CommitBackup day %d: %v", day, err)
		}
		names = append(names, group)
	}

	if _, err := s.RotateGroups(1); err != nil {
		t.Fatalf("RotateGroups: %v", err)
	}

	remaining, err := s.Groups()
	if err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if len(remaining) != 1 || remaining[0] != names[len(names)-1] {
		t.Errorf("remaining = %v, want only %q", remaining, names[len(names)-1])
	}
}
