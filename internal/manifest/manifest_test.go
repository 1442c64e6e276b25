package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sample() *Manifest {
	return &Manifest{
		Format:       FormatVersion,
		Dataset:      "cmip6.CanESM5.historical.tas",
		Version:      "v20260827",
		ChecksumType: "SHA256",
		Files: map[string]Entry{
			"tas_a.nc": {Size: 100, Checksum: "aaa"},
			"tas_b.nc": {Size: 200, Checksum: "bbb"},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	m := sample()

	if err := Save(path, m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !Equivalent(m, got) {
		t.Error("round-tripped manifest not equivalent")
	}
	if got.Dataset != m.Dataset || got.Version != m.Version || got.ChecksumType != m.ChecksumType {
		t.Error("round-tripped metadata differs")
	}
	if got.Files["tas_a.nc"].Size != 100 {
		t.Errorf("size = %d, want 100", got.Files["tas_a.nc"].Size)
	}

	// Save must not leave the temp file behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp manifest left behind")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), FileName)); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("format: 99\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error = %v, want unsupported format", err)
	}
}

func TestEquivalent(t *testing.T) {
	a := sample()

	b := sample()
	if !Equivalent(a, b) {
		t.Error("identical manifests must be equivalent")
	}

	// Different versions, same content: still equivalent.
	b.Version = "v20270101"
	if !Equivalent(a, b) {
		t.Error("equivalence must ignore version")
	}

	// Changed checksum.
	b = sample()
	b.Files["tas_b.nc"] = Entry{Size: 200, Checksum: "ccc"}
	if Equivalent(a, b) {
		t.Error("changed checksum must break equivalence")
	}

	// Extra file.
	b = sample()
	b.Files["tas_c.nc"] = Entry{Size: 1, Checksum: "ddd"}
	if Equivalent(a, b) {
		t.Error("extra file must break equivalence")
	}

	// Missing file.
	b = sample()
	delete(b.Files, "tas_a.nc")
	if Equivalent(a, b) {
		t.Error("missing file must break equivalence")
	}

	if !Equivalent(nil, nil) || Equivalent(a, nil) {
		t.Error("nil handling")
	}
}

func TestValidate(t *testing.T) {
	m := sample()
	m.Dataset = ""
	m.Files["bad.nc"] = Entry{Size: -1}

	errs := Validate(m)
	if len(errs) < 3 {
		t.Errorf("errs = %v, want dataset, checksum and size failures", errs)
	}
}
