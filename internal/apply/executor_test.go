package apply

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/drstools/drsprep/internal/manifest"
	"github.com/drstools/drsprep/internal/reconcile"
	"github.com/drstools/drsprep/internal/scan"
)

const dsID = "cmip6.CanESM5.historical.tas"
const dsPath = "cmip6/CanESM5/historical/tas"

func writeSource(t *testing.T, dir, name, content string) scan.FileRecord {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return scan.FileRecord{Path: p, Size: int64(len(content)), Checksum: "cs-" + name}
}

func TestApplyInitialize(t *testing.T) {
	srcDir := t.TempDir()
	root := t.TempDir()

	files := map[string]scan.FileRecord{
		"a.nc": writeSource(t, srcDir, "a.nc", "content a"),
		"b.nc": writeSource(t, srcDir, "b.nc", "content b"),
		"c.nc": writeSource(t, srcDir, "c.nc", "content c"),
	}

	x := &Executor{Root: root, Mode: "link", ChecksumType: "SHA256"}
	d := &reconcile.Decision{
		Dataset:     dsID,
		DatasetPath: dsPath,
		Kind:        reconcile.KindInitialize,
		Version:     "v20260827",
		New:         []string{"a.nc", "b.nc", "c.nc"},
	}

	applied, err := x.Apply(context.Background(), d, files)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.Transferred != 3 || applied.Reused != 0 {
		t.Errorf("applied = %+v", applied)
	}

	versionDir := filepath.Join(root, filepath.FromSlash(dsPath), "v20260827")
	for name := range files {
		if _, err := os.Stat(filepath.Join(versionDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	// Linked, not copied.
	srcInfo, _ := os.Stat(files["a.nc"].Path)
	dstInfo, _ := os.Stat(filepath.Join(versionDir, "a.nc"))
	if !os.SameFile(srcInfo, dstInfo) {
		t.Error("link mode must hard-link the source")
	}

	m, err := manifest.Load(filepath.Join(versionDir, manifest.FileName))
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if len(m.Files) != 3 || m.Dataset != dsID || m.Version != "v20260827" {
		t.Errorf("manifest = %+v", m)
	}

	target, err := os.Readlink(filepath.Join(root, filepath.FromSlash(dsPath), "latest"))
	if err != nil {
		t.Fatalf("latest symlink: %v", err)
	}
	if target != "v20260827" {
		t.Errorf("latest → %q, want v20260827", target)
	}
}

func TestApplyUpgradeReusesByLink(t *testing.T) {
	srcDir := t.TempDir()
	root := t.TempDir()

	files := map[string]scan.FileRecord{
		"keep.nc":   writeSource(t, srcDir, "keep.nc", "unchanged"),
		"change.nc": writeSource(t, srcDir, "change.nc", "new bytes"),
	}

	x := &Executor{Root: root, Mode: "copy", ChecksumType: "SHA256"}

	init := &reconcile.Decision{
		Dataset: dsID, DatasetPath: dsPath,
		Kind: reconcile.KindInitialize, Version: "v20250101",
		New: []string{"change.nc", "keep.nc"},
	}
	if _, err := x.Apply(context.Background(), init, files); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	files["change.nc"] = writeSource(t, srcDir, "change.nc", "changed bytes")
	up := &reconcile.Decision{
		Dataset: dsID, DatasetPath: dsPath,
		Kind: reconcile.KindUpgrade, Version: "v20250601", Previous: "v20250101",
		Reused: []string{"keep.nc"}, New: []string{"change.nc"},
	}

	applied, err := x.Apply(context.Background(), up, files)
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if applied.Reused != 1 || applied.Transferred != 1 {
		t.Errorf("applied = %+v", applied)
	}

	prev := filepath.Join(root, filepath.FromSlash(dsPath), "v20250101", "keep.nc")
	next := filepath.Join(root, filepath.FromSlash(dsPath), "v20250601", "keep.nc")
	pi, _ := os.Stat(prev)
	ni, _ := os.Stat(next)
	if !os.SameFile(pi, ni) {
		t.Error("reused file must be hard-linked from the previous version")
	}

	target, _ := os.Readlink(filepath.Join(root, filepath.FromSlash(dsPath), "latest"))
	if target != "v20250601" {
		t.Errorf("latest → %q, want v20250601", target)
	}
}

func TestApplyUpToDateNoOp(t *testing.T) {
	root := t.TempDir()
	x := &Executor{Root: root, Mode: "link", ChecksumType: "SHA256"}

	d := &reconcile.Decision{
		Dataset: dsID, DatasetPath: dsPath,
		Kind: reconcile.KindUpToDate, Version: "v20250101",
	}
	if _, err := x.Apply(context.Background(), d, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "cmip6")); !os.IsNotExist(err) {
		t.Error("up-to-date decision must not touch the filesystem")
	}
}

func TestApplyMoveRemovesSource(t *testing.T) {
	srcDir := t.TempDir()
	root := t.TempDir()

	files := map[string]scan.FileRecord{
		"a.nc": writeSource(t, srcDir, "a.nc", "moved bytes"),
	}

	x := &Executor{Root: root, Mode: "move", ChecksumType: "SHA256"}
	d := &reconcile.Decision{
		Dataset: dsID, DatasetPath: dsPath,
		Kind: reconcile.KindInitialize, Version: "v20260827", New: []string{"a.nc"},
	}

	if _, err := x.Apply(context.Background(), d, files); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, err := os.Stat(files["a.nc"].Path); !os.IsNotExist(err) {
		t.Error("move mode must remove the scan source")
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(dsPath), "v20260827", "a.nc")); err != nil {
		t.Errorf("moved file missing: %v", err)
	}
}

// failAfter fails every transfer after the first n.
type failAfter struct {
	n     int
	calls int
}

func (f *failAfter) Name() string { return "failing" }

func (f *failAfter) Transfer(src, dst string) error {
	f.calls++
	if f.calls > f.n {
		return fmt.Errorf("disk full")
	}
	return CopyTransfer{}.Transfer(src, dst)
}

func TestApplyPartialFailureKeptForInspection(t *testing.T) {
	srcDir := t.TempDir()
	root := t.TempDir()

	files := map[string]scan.FileRecord{
		"a.nc": writeSource(t, srcDir, "a.nc", "first"),
		"b.nc": writeSource(t, srcDir, "b.nc", "second"),
	}

	reg := NewRegistry()
	reg.Register(&failAfter{n: 1})
	x := &Executor{Root: root, Mode: "failing", Modes: reg, ChecksumType: "SHA256"}

	d := &reconcile.Decision{
		Dataset: dsID, DatasetPath: dsPath,
		Kind: reconcile.KindInitialize, Version: "v20260827",
		New: []string{"a.nc", "b.nc"},
	}

	applied, err := x.Apply(context.Background(), d, files)
	if err == nil {
		t.Fatal("expected execution error")
	}
	var ee *ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("error type = %T", err)
	}
	if applied.Transferred != 1 {
		t.Errorf("transferred = %d, want 1", applied.Transferred)
	}

	// The partially materialized version directory is kept.
	versionDir := filepath.Join(root, filepath.FromSlash(dsPath), "v20260827")
	if _, err := os.Stat(filepath.Join(versionDir, "a.nc")); err != nil {
		t.Error("already-placed file must be left for inspection")
	}
	// But it never became 'latest' and has no manifest.
	if _, err := os.Stat(filepath.Join(versionDir, manifest.FileName)); !os.IsNotExist(err) {
		t.Error("failed version must not get a manifest record")
	}
	if _, err := os.Lstat(filepath.Join(root, filepath.FromSlash(dsPath), "latest")); !os.IsNotExist(err) {
		t.Error("failed version must not become latest")
	}
}

func TestApplyUnknownMode(t *testing.T) {
	x := &Executor{Root: t.TempDir(), Mode: "teleport", ChecksumType: "SHA256"}
	d := &reconcile.Decision{
		Dataset: dsID, DatasetPath: dsPath,
		Kind: reconcile.KindInitialize, Version: "v20260827", New: []string{"a.nc"},
	}
	if _, err := x.Apply(context.Background(), d, nil); err == nil {
		t.Fatal("expected error for unknown transfer mode")
	}
}

func TestValidatePathEscape(t *testing.T) {
	root := t.TempDir()
	if _, err := ValidatePath(root, "../outside"); err == nil {
		t.Fatal("expected containment error")
	}
	if _, err := ValidatePath(root, "cmip6/model/v1"); err != nil {
		t.Fatalf("contained path rejected: %v", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.map")

	if err := WriteFileAtomic(path, []byte("records\n"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "records\n" {
		t.Errorf("content = %q, err = %v", data, err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}
