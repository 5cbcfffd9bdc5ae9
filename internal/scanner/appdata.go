package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lu-zhengda/droidbroom/internal/utils"
)

// AppDataPass walks the per-app directories under Android/data and
// Android/obb. Directories of uninstalled packages are proposed whole; for
// installed packages only their cache subfolders are proposed.
type AppDataPass struct {
	roots     []string
	cacheDirs []string
	every     int
}

// NewAppDataPass returns an AppDataPass that reports progress every `every`
// app directories and measures each batch of that size concurrently.
func NewAppDataPass(roots, cacheDirs []string, every int) *AppDataPass {
	if every < 1 {
		every = 1
	}
	return &AppDataPass{roots: roots, cacheDirs: cacheDirs, every: every}
}

func (p *AppDataPass) Name() string { return "App data" }

type appDir struct {
	root string
	name string
	path string
}

// probe is one path to measure together with the candidate it becomes.
type probe struct {
	path string
	cand Candidate
}

func (p *AppDataPass) listApps(env Env) []appDir {
	var dirs []appDir
	for _, root := range p.roots {
		base := filepath.Join(env.Root, filepath.FromSlash(root))
		entries, err := os.ReadDir(base)
		if err != nil {
			if !os.IsNotExist(err) {
				env.log().Debug("cannot list app data root", "root", base, "error", err)
			}
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				dirs = append(dirs, appDir{root: root, name: e.Name(), path: filepath.Join(base, e.Name())})
			}
		}
	}
	return dirs
}

func (p *AppDataPass) probes(env Env, d appDir) []probe {
	if !env.Installed.Has(d.name) {
		return []probe{{
			path: d.path,
			cand: Candidate{
				Path:        d.path,
				IsDir:       true,
				Category:    CategoryOrphanedData,
				Description: fmt.Sprintf("%s of uninstalled %s", d.root, d.name),
				Package:     d.name,
				Risk:        Moderate,
			},
		}}
	}

	var out []probe
	for _, name := range p.cacheDirs {
		path := filepath.Join(d.path, name)
		info, err := os.Lstat(path)
		if err != nil {
			continue
		}
		out = append(out, probe{
			path: path,
			cand: Candidate{
				Path:        path,
				IsDir:       info.IsDir(),
				Category:    CategoryAppCache,
				Description: fmt.Sprintf("%s of %s", name, d.name),
				Package:     d.name,
				Risk:        Safe,
			},
		})
	}
	return out
}

// Run reports progress (done, total) before every batch, where total counts
// app directories across all roots.
func (p *AppDataPass) Run(ctx context.Context, env Env, progress ProgressFunc) ([]Candidate, error) {
	apps := p.listApps(env)
	total := len(apps)

	var out []Candidate
	for start := 0; start < total; start += p.every {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if progress != nil {
			progress(start, total)
		}

		end := min(start+p.every, total)
		var batch []probe
		for _, d := range apps[start:end] {
			batch = append(batch, p.probes(env, d)...)
		}

		paths := make([]string, len(batch))
		for i, pr := range batch {
			paths[i] = pr.path
		}
		sizes, err := utils.DirSizes(ctx, paths, env.depth(), env.Workers)
		if err != nil {
			return out, err
		}

		for i, pr := range batch {
			if sizes[i] <= 0 {
				continue
			}
			c := pr.cand
			c.Size = sizes[i]
			out = append(out, c)
		}
	}
	return out, nil
}
