// Package workspace manages per-project working directories.
package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// SiteConfigFile is the site configuration file at the workspace root
const SiteConfigFile = "site.config.json"

// SeedIgnoreFile lists extra exclude patterns at the seed root
const SeedIgnoreFile = ".seedignore"

var defaultExcludes = []string{
	".git/",
	"node_modules/",
	".next/",
	SeedIgnoreFile,
}

// Config holds workspace configuration
type Config struct {
	Root     string
	SeedPath string
	// Excludes are gitignore-style patterns skipped when copying the seed
	Excludes []string
	Logger   *slog.Logger
}

// Manager creates and inspects project workspaces
type Manager struct {
	root     string
	seedPath string
	excludes []string
	logger   *slog.Logger
}

// NewManager creates a new workspace manager
func NewManager(cfg Config) *Manager {
	return &Manager{
		root:     cfg.Root,
		seedPath: cfg.SeedPath,
		excludes: cfg.Excludes,
		logger:   cfg.Logger,
	}
}

// Path returns the workspace directory of a project
func (m *Manager) Path(projectID string) (string, error) {
	if projectID == "" || projectID == "." || projectID == ".." ||
		strings.ContainsAny(projectID, `/\`) || filepath.Base(projectID) != projectID {
		return "", fmt.Errorf("invalid project id %q for workspace", projectID)
	}
	return filepath.Join(m.root, projectID), nil
}

// Ensure creates the workspace directory if needed and returns its path
func (m *Manager) Ensure(projectID string) (string, error) {
	dir, err := m.Path(projectID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create workspace: %w", err)
	}
	return dir, nil
}

// CopySeed copies the template seed tree into dir, overwriting files that
// already exist there.
func (m *Manager) CopySeed(dir string) error {
	src, err := filepath.Abs(m.seedPath)
	if err != nil {
		return fmt.Errorf("failed to resolve seed path: %w", err)
	}
	if info, err := os.Stat(src); err != nil {
		return fmt.Errorf("template seed unavailable: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("template seed %s is not a directory", src)
	}

	matcher, err := m.matcher(src)
	if err != nil {
		return err
	}

	copied := 0
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		slashed := filepath.ToSlash(rel)
		if d.IsDir() {
			slashed += "/"
		}
		if matcher.MatchesPath(slashed) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		dst := filepath.Join(dir, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		copied++
		return copyFile(path, dst)
	})
	if err != nil {
		return fmt.Errorf("failed to copy template seed: %w", err)
	}

	m.logger.Info("Template seed copied",
		slog.String("seed", src),
		slog.String("workspace", dir),
		slog.Int("files", copied),
	)
	return nil
}

func (m *Manager) matcher(seedRoot string) (*gitignore.GitIgnore, error) {
	patterns := append([]string{}, defaultExcludes...)
	patterns = append(patterns, m.excludes...)

	content, err := os.ReadFile(filepath.Join(seedRoot, SeedIgnoreFile))
	switch {
	case err == nil:
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read %s: %w", SeedIgnoreFile, err)
	}

	return gitignore.CompileIgnoreLines(patterns...), nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// HasCheckout reports whether dir holds a git checkout
func (m *Manager) HasCheckout(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// IsEmpty reports whether dir has no entries
func (m *Manager) IsEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("failed to read workspace: %w", err)
	}
	return len(entries) == 0, nil
}

// ReadSiteConfig decodes the site configuration of a workspace
func (m *Manager) ReadSiteConfig(dir string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(dir, SiteConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read site config: %w", err)
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse site config: %w", err)
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	return cfg, nil
}

// WriteSiteConfig writes cfg as 2-space indented JSON
func (m *Manager) WriteSiteConfig(dir string, cfg map[string]any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode site config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SiteConfigFile), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write site config: %w", err)
	}
	return nil
}
