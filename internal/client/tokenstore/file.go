package tokenstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/drox/internal/logger"
)

// fileData — формат файла с токенами.
type fileData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// FileStore хранит токены в JSON-файле с правами 0600.
// Токены кешируются в памяти; файл читается один раз при создании.
type FileStore struct {
	mu   sync.RWMutex
	path string
	data fileData
}

// DefaultPath — путь к файлу токенов в конфиге пользователя.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "drox", "tokens.json")
}

// NewFileStore открывает хранилище. Отсутствующий или битый файл — пустое
// хранилище, не ошибка (битый файл перезапишется первым Save).
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath()
	}
	s := &FileStore{path: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Errorf("tokenstore: чтение %s: %v", path, err)
		}
		return s
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		logger.Errorf("tokenstore: повреждённый файл %s: %v", path, err)
		s.data = fileData{}
	}
	return s
}

func (s *FileStore) Save(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = fileData{AccessToken: access, RefreshToken: refresh}
	return s.flush()
}

func (s *FileStore) Access() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.AccessToken
}

func (s *FileStore) Refresh() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.RefreshToken
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = fileData{}
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// flush пишет через временный файл и rename, чтобы не оставить
// полузаписанный файл при падении.
func (s *FileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	raw, err := json.Marshal(s.data)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
