// Package models knows the model files hyprdictate's local tools can use and
// where they live on disk.
package models

import (
	"fmt"
	"os"
	"path/filepath"
)

// Kind is the tool a model is loaded by.
type Kind string

const (
	Transcription  Kind = "transcription"
	PostProcessing Kind = "post-processing"
)

// ModelInfo holds metadata for a downloadable model
type ModelInfo struct {
	ID           string // model identifier (e.g., "base.en")
	Name         string // display name (e.g., "Base English")
	Kind         Kind
	Filename     string // file name (e.g., "ggml-base.en.bin")
	URL          string
	Size         string // human readable size
	SizeBytes    int64  // size in bytes for progress tracking
	Multilingual bool   // true if supports multiple languages
}

const (
	whisperBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"
	qwenBaseURL    = "https://huggingface.co/Qwen/"
)

func whisperModel(id, name, size string, sizeBytes int64, multilingual bool) ModelInfo {
	filename := "ggml-" + id + ".bin"
	return ModelInfo{
		ID:           id,
		Name:         name,
		Kind:         Transcription,
		Filename:     filename,
		URL:          whisperBaseURL + filename,
		Size:         size,
		SizeBytes:    sizeBytes,
		Multilingual: multilingual,
	}
}

var catalog = []ModelInfo{
	// english-only speech models (faster, smaller)
	whisperModel("tiny.en", "Tiny English", "75MB", 75_000_000, false),
	whisperModel("base.en", "Base English", "142MB", 142_000_000, false),
	whisperModel("small.en", "Small English", "466MB", 466_000_000, false),
	whisperModel("medium.en", "Medium English", "1.5GB", 1_500_000_000, false),

	// multilingual speech models
	whisperModel("tiny", "Tiny", "75MB", 75_000_000, true),
	whisperModel("base", "Base", "142MB", 142_000_000, true),
	whisperModel("small", "Small", "466MB", 466_000_000, true),
	whisperModel("medium", "Medium", "1.5GB", 1_500_000_000, true),
	whisperModel("large-v3", "Large V3", "3GB", 3_000_000_000, true),

	// instruction models for post-processing
	{
		ID:           "qwen2.5-0.5b",
		Name:         "Qwen2.5 0.5B Instruct (Q4_K_M)",
		Kind:         PostProcessing,
		Filename:     "qwen2.5-0.5b-instruct-q4_k_m.gguf",
		URL:          qwenBaseURL + "Qwen2.5-0.5B-Instruct-GGUF/resolve/main/qwen2.5-0.5b-instruct-q4_k_m.gguf",
		Size:         "491MB",
		SizeBytes:    491_000_000,
		Multilingual: true,
	},
	{
		ID:           "qwen2.5-1.5b",
		Name:         "Qwen2.5 1.5B Instruct (Q4_K_M)",
		Kind:         PostProcessing,
		Filename:     "qwen2.5-1.5b-instruct-q4_k_m.gguf",
		URL:          qwenBaseURL + "Qwen2.5-1.5B-Instruct-GGUF/resolve/main/qwen2.5-1.5b-instruct-q4_k_m.gguf",
		Size:         "1.1GB",
		SizeBytes:    1_120_000_000,
		Multilingual: true,
	},
}

var modelByID = func() map[string]ModelInfo {
	m := make(map[string]ModelInfo, len(catalog))
	for _, model := range catalog {
		m[model.ID] = model
	}
	return m
}()

// Get returns info for a model by ID.
func Get(id string) (ModelInfo, bool) {
	info, ok := modelByID[id]
	return info, ok
}

// List returns the catalog, optionally restricted to one kind.
func List(kind Kind) []ModelInfo {
	var result []ModelInfo
	for _, m := range catalog {
		if kind == "" || m.Kind == kind {
			result = append(result, m)
		}
	}
	return result
}

// Store is a directory of downloaded models.
type Store struct {
	Dir string
}

// DefaultStore returns dataDir/models.
func DefaultStore(dataDir string) Store {
	return Store{Dir: filepath.Join(dataDir, "models")}
}

// Path returns where model id lives, installed or not.
func (s Store) Path(id string) (string, error) {
	info, ok := Get(id)
	if !ok {
		return "", fmt.Errorf("unknown model: %s", id)
	}
	return filepath.Join(s.Dir, info.Filename), nil
}

// IsInstalled reports whether the model file exists and is not empty.
func (s Store) IsInstalled(id string) bool {
	path, err := s.Path(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// Installed returns the installed models of one kind.
func (s Store) Installed(kind Kind) []ModelInfo {
	var installed []ModelInfo
	for _, m := range List(kind) {
		if s.IsInstalled(m.ID) {
			installed = append(installed, m)
		}
	}
	return installed
}

// InstalledPath returns the path to an installed model.
func (s Store) InstalledPath(id string) (string, error) {
	path, err := s.Path(id)
	if err != nil {
		return "", err
	}
	if !s.IsInstalled(id) {
		return "", fmt.Errorf("model not installed: %s", id)
	}
	return path, nil
}

// Remove deletes a downloaded model
func (s Store) Remove(id string) error {
	path, err := s.InstalledPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove model: %w", err)
	}
	return nil
}
