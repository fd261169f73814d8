package presets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultName is the preset used for scheduled alarms
const DefaultName = "default"

// Preset controls problem difficulty for a quiz
type Preset struct {
	Name          string `yaml:"name" json:"name"`
	Description   string `yaml:"description" json:"description"`
	OperandMin    int    `yaml:"operand_min" json:"operand_min"`
	OperandMax    int    `yaml:"operand_max" json:"operand_max"`
	HintThreshold int    `yaml:"hint_threshold" json:"hint_threshold"`
}

// Loader manages loading and caching of difficulty presets
type Loader struct {
	mu      sync.RWMutex
	presets map[string]*Preset
}

// NewLoader creates a loader seeded with the built-in default preset:
// operands in [2, 12], hint after 3 misses.
func NewLoader() *Loader {
	l := &Loader{presets: make(map[string]*Preset)}
	l.presets[DefaultName] = &Preset{
		Name:          DefaultName,
		Description:   "Standard wake-up multiplication",
		OperandMin:    2,
		OperandMax:    12,
		HintThreshold: 3,
	}
	return l
}

// LoadFromDir loads all YAML presets from a directory
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading presets from directory", "dir", dir)

	patterns := []string{"*.yaml", "*.yml"}
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load preset", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("presets loaded", "count", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads a single preset from a YAML file
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if p.Name == "" {
		return fmt.Errorf("preset name is required")
	}
	if p.OperandMin < 1 {
		p.OperandMin = 2
	}
	if p.OperandMax < p.OperandMin {
		return fmt.Errorf("operand_max must be >= operand_min")
	}
	if p.HintThreshold < 1 {
		p.HintThreshold = 3
	}

	l.mu.Lock()
	l.presets[p.Name] = &p
	l.mu.Unlock()

	slog.Info("preset loaded", "name", p.Name, "range", fmt.Sprintf("[%d,%d]", p.OperandMin, p.OperandMax))
	return nil
}

// Get retrieves a preset by name
func (l *Loader) Get(name string) *Preset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.presets[name]
}

// Default returns the built-in default preset
func (l *Loader) Default() *Preset {
	return l.Get(DefaultName)
}

// List returns all loaded presets
func (l *Loader) List() []*Preset {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Preset, 0, len(l.presets))
	for _, p := range l.presets {
		result = append(result, p)
	}
	return result
}

// Add programmatically adds a preset
func (l *Loader) Add(p *Preset) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.presets[p.Name] = p
}
