package scanner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/lu-zhengda/droidbroom/internal/config"
)

// KnownPathPass checks a fixed table of cache, thumbnail and log locations
// relative to the storage root.
type KnownPathPass struct {
	paths []config.JunkPath
}

func NewKnownPathPass(paths []config.JunkPath) *KnownPathPass {
	return &KnownPathPass{paths: paths}
}

func (p *KnownPathPass) Name() string { return "Known junk paths" }

func (p *KnownPathPass) Run(ctx context.Context, env Env, _ ProgressFunc) ([]Candidate, error) {
	var out []Candidate
	for _, jp := range p.paths {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if jp.Path == "" {
			continue
		}

		path := filepath.Join(env.Root, filepath.FromSlash(jp.Path))
		info, err := os.Lstat(path)
		if err != nil {
			continue
		}
		size := Measure(env, path)
		if size <= 0 {
			continue
		}

		category := jp.Category
		if category == "" {
			category = "Junk"
		}
		out = append(out, Candidate{
			Path:        path,
			IsDir:       info.IsDir(),
			Size:        size,
			Category:    category,
			Description: jp.Path,
			Risk:        Safe,
		})
	}
	return out, nil
}
