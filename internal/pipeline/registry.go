package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/jsonc"
	"go.yaml.in/yaml/v3"
)

// reloadDebounce coalesces bursts of file events into one reload.
const reloadDebounce = 200 * time.Millisecond

// Source records where a registered pipeline came from.
type Source string

const (
	SourceBuiltin Source = "builtin"
	SourceFile    Source = "file"
	SourceCode    Source = "code"
)

// Info summarises a registered pipeline.
type Info struct {
	Name        string
	Description string
	Steps       int
	Source      Source
	// Path is set for file definitions.
	Path string
}

type entry struct {
	pipeline *Pipeline
	source   Source
	path     string
}

// Registry holds the pipelines available by name. Definitions from files
// override built-ins of the same name; pipelines registered in code
// override both.
type Registry struct {
	dir    string
	logger *slog.Logger

	mu         sync.RWMutex
	pipelines  map[string]entry
	registered map[string]*Pipeline
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry loads the built-in pipelines and every definition file in
// dir. An empty or missing dir leaves only the built-ins.
func NewRegistry(dir string, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		dir:        dir,
		logger:     slog.Default(),
		registered: make(map[string]*Pipeline),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the definitions directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Get returns the pipeline registered under name.
func (r *Registry) Get(name string) (*Pipeline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.pipelines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e.pipeline, nil
}

// Has reports whether a pipeline is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pipelines[name]
	return ok
}

// Names returns the registered pipeline names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.pipelines))
	for name := range r.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List describes every registered pipeline, sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.pipelines))
	for _, e := range r.pipelines {
		out = append(out, Info{
			Name:        e.pipeline.Name,
			Description: e.pipeline.Description,
			Steps:       len(e.pipeline.Steps),
			Source:      e.source,
			Path:        e.path,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Register adds a pipeline defined in code. It survives reloads.
func (r *Registry) Register(p *Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[p.Name] = p
	r.pipelines[p.Name] = entry{pipeline: p, source: SourceCode}
	return nil
}

// Reload rebuilds the registry from the built-ins, the definition files
// and the pipelines registered in code. Unreadable or invalid files are
// logged and skipped.
func (r *Registry) Reload() error {
	next := make(map[string]entry)
	for _, p := range Builtins() {
		next[p.Name] = entry{pipeline: p, source: SourceBuiltin}
	}

	files, err := r.definitionFiles()
	if err != nil {
		return err
	}
	for _, path := range files {
		p, err := LoadFile(path)
		if err != nil {
			r.logger.Warn("skipping pipeline definition", "path", path, "error", err)
			continue
		}
		if prev, ok := next[p.Name]; ok {
			r.logger.Info("pipeline definition overrides existing", "pipeline", p.Name, "path", path, "previous", prev.source)
		}
		next[p.Name] = entry{pipeline: p, source: SourceFile, path: path}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, p := range r.registered {
		next[name] = entry{pipeline: p, source: SourceCode}
	}
	r.pipelines = next
	return nil
}

// definitionFiles lists the definition files in dir, sorted by name.
func (r *Registry) definitionFiles() ([]string, error) {
	if r.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pipelines dir %s: %w", r.dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isDefinitionFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(r.dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func isDefinitionFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json", ".jsonc":
		return true
	default:
		return false
	}
}

// LoadFile reads a pipeline definition. YAML (.yaml, .yml) and JSON with
// comments (.json, .jsonc) are accepted. A definition without a name is
// named after its file.
func LoadFile(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	p, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = NameFromPath(path)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a definition in the format named by ext.
func Parse(data []byte, ext string) (*Pipeline, error) {
	var p Pipeline
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: parsing yaml: %v", ErrInvalidDefinition, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &p); err != nil {
			return nil, fmt.Errorf("%w: parsing json: %v", ErrInvalidDefinition, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidDefinition, ext)
	}
	return &p, nil
}

// NameFromPath strips the directory and extension from a definition path.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Watch reloads the registry whenever definition files change, until ctx
// is done. onReload, if set, is called after each reload.
func (r *Registry) Watch(ctx context.Context, onReload func(error)) error {
	if r.dir == "" {
		return fmt.Errorf("watch pipelines: no definitions directory")
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("watch pipelines: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch pipelines: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch pipelines %s: %w", r.dir, err)
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isDefinitionFile(event.Name) || event.Op == fsnotify.Chmod {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				err := r.Reload()
				if err != nil {
					r.logger.Warn("pipeline reload failed", "error", err)
				} else {
					r.logger.Info("pipelines reloaded", "count", len(r.Names()))
				}
				if onReload != nil {
					onReload(err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("pipeline watcher error", "error", err)
			}
		}
	}()
	return nil
}
