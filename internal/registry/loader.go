package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"poolchat/internal/common/fsutil"
	"poolchat/pkg/types"
)

// ErrNoModel is returned by Resolve when neither a model path nor a usable
// models directory was given.
var ErrNoModel = errors.New("no model file found")

// LoadDir scans a directory for *.gguf files and builds a registry from filenames.
// ID is the full filename (including extension); Path is the absolute file path.
// Results are sorted by ID.
func LoadDir(dir string) ([]types.Model, error) {
	abs, err := fsutil.Resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		models = append(models, types.Model{ID: name, Name: strings.TrimSuffix(name, filepath.Ext(name)), Path: filepath.Join(abs, name)})
	}
	slices.SortFunc(models, func(a, b types.Model) int { return strings.Compare(a.ID, b.ID) })
	return models, nil
}

// Resolve picks the weights file for the llama backend. An explicit
// modelPath wins; otherwise the first model in modelsDir is used.
func Resolve(modelPath, modelsDir string) (types.Model, error) {
	if modelPath != "" {
		p, err := fsutil.Resolve(modelPath)
		if err != nil {
			return types.Model{}, err
		}
		if !fsutil.PathExists(p) {
			return types.Model{}, fmt.Errorf("model %s: %w", p, os.ErrNotExist)
		}
		base := filepath.Base(p)
		return types.Model{ID: base, Name: strings.TrimSuffix(base, filepath.Ext(base)), Path: p}, nil
	}
	if modelsDir == "" {
		return types.Model{}, ErrNoModel
	}
	models, err := LoadDir(modelsDir)
	if err != nil {
		return types.Model{}, err
	}
	if len(models) == 0 {
		return types.Model{}, fmt.Errorf("%s: %w", modelsDir, ErrNoModel)
	}
	return models[0], nil
}
