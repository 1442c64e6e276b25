package manifest

// FormatVersion is the on-disk manifest record format. Future runs must be
// able to parse manifests written by earlier runs, so bump with care.
const FormatVersion = 1

// FileName is the manifest record written inside each version directory.
const FileName = ".manifest.yaml"

// Manifest records the file membership of one dataset at one version.
type Manifest struct {
	Format       int              `yaml:"format"`
	Dataset      string           `yaml:"dataset"`
	Version      string           `yaml:"version"`
	ChecksumType string           `yaml:"checksum_type"`
	Files        map[string]Entry `yaml:"files"`
}

// Entry records the integrity metadata of a single file.
type Entry struct {
	Size     int64  `yaml:"size"`
	Checksum string `yaml:"checksum"`
}

// Equivalent reports whether two manifests describe the same file set:
// identical filenames, each with an equal checksum. Sizes and versions do
// not participate; the checksum is the contract.
func Equivalent(a, b *Manifest) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Files) != len(b.Files) {
		return false
	}
	for name, ea := range a.Files {
		eb, ok := b.Files[name]
		if !ok || ea.Checksum != eb.Checksum {
			return false
		}
	}
	return true
}
