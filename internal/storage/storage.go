// Package storage хранит файлы документов и QR-кодов на диске под общим корнем.
// В базе сохраняется путь относительно корня
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrExists   = errors.New("файл уже существует")
	ErrNotFound = errors.New("файл не найден")
	ErrBadPath  = errors.New("недопустимый путь к файлу")
)

type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("не удалось определить корень хранилища: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать корень хранилища: %w", err)
	}
	return &FileStore{root: abs}, nil
}

func (s *FileStore) Root() string {
	return s.root
}

// resolve переводит относительный путь в абсолютный, не выпуская его за пределы корня
func (s *FileStore) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", ErrBadPath
	}
	return filepath.Join(s.root, clean), nil
}

// Save записывает файл только если его еще нет. Частично записанный файл удаляется
func (s *FileStore) Save(rel string, data []byte) (string, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("не удалось создать директорию: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", ErrExists
		}
		return "", fmt.Errorf("не удалось создать файл: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("не удалось записать файл: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("не удалось сохранить файл: %w", err)
	}

	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel))), nil
}

// Remove удаляет файл; отсутствие файла ошибкой не считается
func (s *FileStore) Remove(rel string) error {
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("не удалось удалить файл: %w", err)
	}
	return nil
}

func (s *FileStore) Open(rel string) (io.ReadCloser, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("не удалось открыть файл: %w", err)
	}
	return f, nil
}

func (s *FileStore) Exists(rel string) bool {
	full, err := s.resolve(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}
