// Package launcher locates Prism-style launcher installations and
// turns one instance into the list of scannable containers.
package launcher

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/samber/lo"

	"github.com/craftscan/craftscan/internal/models"
)

// RootCandidate is one probed launcher root location.
type RootCandidate struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
	Valid  bool   `json:"valid"`
	Source string `json:"source"` // env, standard, or portable
}

// ValidateRoot reports whether a directory looks like a launcher root.
// A valid root has instances/ and libraries/ directories.
func ValidateRoot(path string) bool {
	for _, sub := range []string{"instances", "libraries"} {
		info, err := os.Stat(filepath.Join(path, sub))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// DetectRoots probes the platform-default launcher locations plus the
// PRISM_ROOT override and returns deduplicated candidates, valid ones
// first.
func DetectRoots() []RootCandidate {
	type probe struct {
		path   string
		source string
	}
	var probes []probe

	if env := os.Getenv("PRISM_ROOT"); env != "" {
		probes = append(probes, probe{env, "env"})
	}

	if home, err := os.UserHomeDir(); err == nil {
		switch runtime.GOOS {
		case "darwin":
			probes = append(probes, probe{filepath.Join(home, "Library", "Application Support", "PrismLauncher"), "standard"})
		case "windows":
			if appData := os.Getenv("APPDATA"); appData != "" {
				probes = append(probes, probe{filepath.Join(appData, "PrismLauncher"), "standard"})
			}
		default:
			probes = append(probes, probe{filepath.Join(home, ".local", "share", "PrismLauncher"), "standard"})
		}

		// Portable installs live directly under the home directory.
		probes = append(probes, probe{filepath.Join(home, "PrismLauncher"), "portable"})
	}

	probes = lo.UniqBy(lo.Map(probes, func(p probe, _ int) probe {
		if abs, err := filepath.Abs(p.path); err == nil {
			p.path = abs
		}
		return p
	}), func(p probe) string { return p.path })

	candidates := lo.Map(probes, func(p probe, _ int) RootCandidate {
		info, err := os.Stat(p.path)
		return RootCandidate{
			Path:   p.path,
			Exists: err == nil && info.IsDir(),
			Valid:  ValidateRoot(p.path),
			Source: p.source,
		}
	})

	valid := lo.Filter(candidates, func(c RootCandidate, _ int) bool { return c.Valid })
	invalid := lo.Filter(candidates, func(c RootCandidate, _ int) bool { return !c.Valid })
	return append(valid, invalid...)
}

// ResolveRoot picks the launcher root to use. An explicit configured
// root must validate; otherwise the first valid detected root wins.
func ResolveRoot(configured string) (string, error) {
	if configured != "" {
		if !ValidateRoot(configured) {
			return "", models.Errorf(models.ErrKindConfig,
				"configured launcher root is not valid: %s", configured)
		}
		return configured, nil
	}

	for _, c := range DetectRoots() {
		if c.Valid {
			return c.Path, nil
		}
	}
	return "", models.WrapError(models.ErrKindConfig,
		"auto-detect launcher root", models.ErrNoPrismRoot)
}
