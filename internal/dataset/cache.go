package dataset

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ecommerce-dashboard/internal/models"
)

const cacheVersion = "v1"

var errCacheDisabled = errors.New("cache disabled")

type snapshot struct {
	Rows     []models.OrderRecord
	CachedAt time.Time
}

func cacheFilename(dir, source string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(source)
	return filepath.Join(dir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

// loadFromCache returns the snapshot for a local source if it was written
// after the source's last modification.
func loadFromCache(source, dir string) (*OrderTable, error) {
	if dir == "" || isRemote(source) {
		return nil, errCacheDisabled
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(cacheFilename(dir, source))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}
	if !info.ModTime().Before(snap.CachedAt) {
		return nil, errors.New("cache is stale")
	}

	// Rows were sorted before they were written.
	return newSortedTable(snap.Rows), nil
}

func saveToCache(source, dir string, t *OrderTable) error {
	if dir == "" || isRemote(source) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(cacheFilename(dir, source))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(snapshot{Rows: t.Rows(), CachedAt: time.Now()})
}
