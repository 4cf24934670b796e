// Package file provides the small set of filesystem operations the agent
// needs, behind an interface so that services can be tested without
// touching the disk.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileOperations defines the filesystem operations used across the agent.
type FileOperations interface {
	// FileExists reports whether path exists and is a regular file.
	FileExists(path string) bool

	// ReadFile reads the file at path and returns its contents as a string.
	ReadFile(path string) (string, error)

	// ReadFileRaw reads the file at path and returns its raw bytes.
	ReadFileRaw(path string) ([]byte, error)

	// WriteFile writes data to path, creating parent directories as needed.
	WriteFile(path string, data string) error

	// ReadJsonFile decodes the JSON file at path into out.
	ReadJsonFile(path string, out interface{}) error

	// WriteJsonFile atomically writes v to path as indented JSON.
	WriteJsonFile(path string, v interface{}) error

	// ReadYamlFile decodes the YAML file at path into out.
	ReadYamlFile(path string, out interface{}) error
}

// FileService is the default FileOperations implementation backed by the
// local filesystem.
type FileService struct{}

// NewFileService creates a new FileService.
func NewFileService() *FileService {
	return &FileService{}
}

func (f *FileService) FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func (f *FileService) ReadFile(path string) (string, error) {
	data, err := f.ReadFileRaw(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f *FileService) ReadFileRaw(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

func (f *FileService) WriteFile(path string, data string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directories for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

func (f *FileService) ReadJsonFile(path string, out interface{}) error {
	data, err := f.ReadFileRaw(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse JSON file %s: %w", path, err)
	}
	return nil
}

// WriteJsonFile writes v as indented JSON through a temporary file in the
// same directory, then renames it into place so that readers never observe
// a partially written file.
func (f *FileService) WriteJsonFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON for %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directories for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func (f *FileService) ReadYamlFile(path string, out interface{}) error {
	data, err := f.ReadFileRaw(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse YAML file %s: %w", path, err)
	}
	return nil
}
