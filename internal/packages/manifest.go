package packages

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest lists apps from a YAML or JSON file. It serves offline images of
// a device and carries data the shell cannot read, such as last-used times.
type Manifest struct {
	path string
}

// NewManifest returns a Manifest reading from path.
func NewManifest(path string) *Manifest {
	return &Manifest{path: path}
}

type manifestFile struct {
	Apps []App `yaml:"apps"`
}

// List reads the manifest. Apps without a recorded size get the size of
// their source file when it is reachable locally.
func (m *Manifest) List(ctx context.Context) ([]App, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var mf manifestFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", m.path, err)
	}

	for i := range mf.Apps {
		a := &mf.Apps[i]
		if a.PackageName == "" {
			return nil, fmt.Errorf("manifest %s: app %d has no package", m.path, i)
		}
		if a.SizeBytes == 0 && a.SourcePath != "" {
			if info, err := os.Stat(a.SourcePath); err == nil {
				a.SizeBytes = info.Size()
			}
		}
	}
	return mf.Apps, nil
}

// Open opens a package file from the local filesystem.
func (m *Manifest) Open(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}
