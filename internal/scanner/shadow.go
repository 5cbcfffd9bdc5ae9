package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ShadowPass finds folders at the storage root that look like leftovers of
// uninstalled apps: names starting with a package-style prefix or a dot
// whose package is no longer installed.
type ShadowPass struct {
	prefixes  []string
	allowlist map[string]bool
}

// NewShadowPass returns a ShadowPass. Prefixes and allowlist entries are
// compared case-insensitively.
func NewShadowPass(prefixes, allowlist []string) *ShadowPass {
	p := &ShadowPass{allowlist: make(map[string]bool, len(allowlist))}
	for _, pre := range prefixes {
		p.prefixes = append(p.prefixes, strings.ToLower(pre))
	}
	for _, a := range allowlist {
		p.allowlist[strings.ToLower(a)] = true
	}
	return p
}

func (p *ShadowPass) Name() string { return "Shadow folders" }

func (p *ShadowPass) matches(lower string) bool {
	if p.allowlist[lower] {
		return false
	}
	for _, pre := range p.prefixes {
		if strings.HasPrefix(lower, pre) {
			return true
		}
	}
	return false
}

func (p *ShadowPass) Run(ctx context.Context, env Env, _ ProgressFunc) ([]Candidate, error) {
	entries, err := os.ReadDir(env.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		env.log().Debug("cannot list storage root", "root", env.Root, "error", err)
		return nil, nil
	}

	var out []Candidate
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		lower := strings.ToLower(name)
		if !p.matches(lower) || env.Installed.HasFold(lower) {
			continue
		}

		path := filepath.Join(env.Root, name)
		size := Measure(env, path)
		if size <= 0 {
			continue
		}

		c := Candidate{
			Path:        path,
			IsDir:       true,
			Size:        size,
			Category:    CategoryShadowFolder,
			Description: fmt.Sprintf("Leftover folder %s", name),
			Risk:        Moderate,
		}
		if !strings.HasPrefix(name, ".") {
			c.Package = name
			c.Description = fmt.Sprintf("Leftover folder of uninstalled %s", name)
		}
		out = append(out, c)
	}
	return out, nil
}
