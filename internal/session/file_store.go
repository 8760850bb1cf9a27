package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileStore keeps the session as a small JSON document on disk
type FileStore struct {
	path    string
	baseDir string
	logger  *zap.Logger
}

// NewFileStore creates a store writing to path
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return NewFileStoreIn(filepath.Dir(path), filepath.Base(path), logger)
}

// NewFileStoreIn creates a store for name relative to baseDir. Names that
// resolve outside baseDir are rejected on every access.
func NewFileStoreIn(baseDir, name string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:    filepath.Join(baseDir, name),
		baseDir: baseDir,
		logger:  logger,
	}
}

// Load reads the saved session
func (s *FileStore) Load() (*State, error) {
	if err := s.validatePath(s.path); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var state State
	if err := json.Unmarshal(content, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session file: %w", err)
	}
	if state.Token == "" {
		return nil, ErrNoSession
	}
	return &state, nil
}

// Save writes token and user, creating parent directories if needed
func (s *FileStore) Save(state *State) error {
	if err := s.validatePath(s.path); err != nil {
		return err
	}

	if err := os.MkdirAll(s.baseDir, 0700); err != nil {
		s.logger.Error("Failed to create session directory",
			zap.String("path", s.baseDir),
			zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	content, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	// Write then rename so a crash never leaves a half-written token
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		s.logger.Error("Failed to write session file",
			zap.String("path", tmp),
			zap.Error(err))
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	s.logger.Debug("Session saved", zap.String("path", s.path))
	return nil
}

// Clear removes the session file
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// validatePath checks that the path is safe and within baseDir
func (s *FileStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}
