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

package configloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nabbar/vsbackup/internal/fsmeta"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
backup_root: /var/backups/vsbackup
max_backups: 7
max_backup_groups: 4
compression: gz
root_dir_mode: "0750"
backup_items:
  home:
    before: ""
    after: ""
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackupRoot != "/var/backups/vsbackup" {
		t.Errorf("BackupRoot = %q", cfg.BackupRoot)
	}
	if cfg.MaxBackups != 7 || cfg.MaxBackupGroups != 4 {
		t.Errorf("MaxBackups/MaxBackupGroups = %d/%d", cfg.MaxBackups, cfg.MaxBackupGroups)
	}
	if cfg.Compression != "gz" {
		t.Errorf("Compression = %q", cfg.Compression)
	}
	if cfg.RootDirMode != fsmeta.Perm(0o750) {
		t.Errorf("RootDirMode = %s, want 0750", cfg.RootDirMode)
	}
	if _, ok := cfg.BackupItems["home"]; !ok {
		t.Errorf("backup_items[home] missing")
	}
}

func TestLoadDefaultsSurviveSparseFile(t *testing.T) {
	path := writeConfig(t, "config.toml", `
backup_root = "/srv/backups"
max_backups = 3
max_backup_groups = 2

[backup_items.etc]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.TrustModifyTime || !cfg.PreserveHardLinks {
		t.Errorf("defaults not preserved: trust_modify_time=%v preserve_hard_links=%v", cfg.TrustModifyTime, cfg.PreserveHardLinks)
	}
	if cfg.HashAlgorithm != "sha256" {
		t.Errorf("HashAlgorithm = %q, want sha256 default", cfg.HashAlgorithm)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
backup_root: ""
max_backups: 0
max_backup_groups: 0
backup_items: {}
`)

	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load: expected validation error, got nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("Load: expected error for missing file")
	}
	if !err.IsCode(ErrorReadConfig) {
		t.Errorf("expected ErrorReadConfig, got %v", err)
	}
}
