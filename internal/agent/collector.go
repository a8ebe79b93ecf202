package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Manifest is the on-disk description of one agent: a JSON file named
// "<name>.agent.json" inside the collected directory, naming an already
// built executable and any extra argv tail to append after the wire
// protocol's own arguments. Compiling from source is explicitly out of
// scope; a manifest that names a path which does not exist or is not
// executable resolves to an ineligible Agent rather than an error, so one
// bad entry does not abort the whole collection.
type Manifest struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Args   []string `json:"args,omitempty"`
	LogDir string   `json:"log_dir,omitempty"`
}

// Collector discovers agents from a directory of *.agent.json manifests.
type Collector struct {
	logger zerolog.Logger
}

// NewCollector builds a Collector bound to the given logger, matching the
// component-scoped zerolog convention used across the rest of the engine.
func NewCollector(logger zerolog.Logger) *Collector {
	return &Collector{logger: logger.With().Str("component", "collector").Logger()}
}

// Collect reads every *.agent.json file in dir concurrently (errgroup,
// mirroring the fan-out pattern used for per-seat client handler startup
// in internal/match), resolves each to an Agent, and returns the roster
// sorted by Name for determinism. An invalid directory is the one condition
// that stops collection early; a manifest that cannot be read or parsed is
// logged and skipped, and a missing or non-executable path yields an
// ineligible Agent.
func (c *Collector) Collect(dir string) ([]*Agent, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("collector: invalid agent directory %q: %w", dir, err)
	}

	var manifestPaths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".agent.json") {
			manifestPaths = append(manifestPaths, filepath.Join(dir, e.Name()))
		}
	}

	agents := make([]*Agent, len(manifestPaths))
	g := new(errgroup.Group)
	for i, path := range manifestPaths {
		i, path := i, path
		g.Go(func() error {
			a, err := c.resolveOne(path)
			if err != nil {
				c.logger.Warn().Err(err).Str("manifest", path).Msg("agent manifest rejected")
				return nil
			}
			agents[i] = a
			return nil
		})
	}
	_ = g.Wait() // the goroutines above never return a non-nil error; kept for the errgroup idiom

	result := make([]*Agent, 0, len(agents))
	seen := make(map[string]struct{}, len(agents))
	nextID := int64(1)
	for _, a := range agents {
		if a == nil {
			continue
		}
		if _, dup := seen[a.Key()]; dup {
			continue
		}
		seen[a.Key()] = struct{}{}
		a.ID = ID(nextID)
		nextID++
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (c *Collector) resolveOne(manifestPath string) (*Agent, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", manifestPath, err)
	}
	if m.Name == "" {
		m.Name = filepath.Base(manifestPath)
	}

	a := New(0, m.Name, "", m.Args, m.LogDir)
	if m.Path == "" {
		return a, nil
	}
	info, err := os.Stat(m.Path)
	if err != nil || info.IsDir() {
		c.logger.Warn().Str("agent", m.Name).Str("path", m.Path).Msg("agent executable not found; marking ineligible")
		return a, nil
	}
	if info.Mode()&0111 == 0 {
		c.logger.Warn().Str("agent", m.Name).Str("path", m.Path).Msg("agent path is not executable; marking ineligible")
		return a, nil
	}
	a.Path = m.Path
	return a, nil
}
