// Package file хранит журнал заказов в одном JSON-файле.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/psalsa30/unithrift/internal/domain"
	"github.com/psalsa30/unithrift/internal/storage/document"
)

const filePerm = 0o644

// OrderStore - файловая реализация domain.OrderStore.
type OrderStore struct {
	mu     sync.Mutex
	path   string
	logger *log.Entry
}

// NewOrderStore создаёт хранилище поверх файла path. Файл может ещё не существовать.
func NewOrderStore(path string, logger *log.Entry) *OrderStore {
	if logger == nil {
		logger = log.New().WithField("component", "file-store")
	}
	return &OrderStore{
		path:   path,
		logger: logger.WithField("path", path),
	}
}

// Path возвращает путь к файлу журнала.
func (s *OrderStore) Path() string {
	return s.path
}

// LoadAll читает документ. Отсутствующий, пустой или повреждённый файл даёт пустую коллекцию.
func (s *OrderStore) LoadAll(ctx context.Context) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.Order{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrPersistence, s.path, err)
	}

	orders, err := document.Decode(data)
	if err != nil {
		s.logger.WithError(err).Warn("orders file is not readable, treating as empty")
		return []domain.Order{}, nil
	}
	return orders, nil
}

// SaveAll пишет документ во временный файл рядом с целевым и переименовывает его поверх.
func (s *OrderStore) SaveAll(ctx context.Context, orders []domain.Order) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	data, err := document.Encode(orders)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, s.path, err)
	}
	return nil
}

// Check проверяет, что каталог журнала доступен.
func (s *OrderStore) Check(_ context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat orders dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

var _ domain.OrderStore = (*OrderStore)(nil)
