package features

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/himanishpuri/shinglebench/pkg/models"
	"github.com/himanishpuri/shinglebench/pkg/utils"
	"github.com/vmihailenco/msgpack/v5"
)

// cacheVersion is bumped whenever the extraction output changes shape.
const cacheVersion = 1

const cacheExt = ".msgpack"

var ErrCacheCorrupt = errors.New("feature cache entry is corrupt")

// Cache stores extracted recordings as msgpack files, one per recording.
// Entries made with a different Config are treated as misses.
type Cache struct {
	Dir string
}

type cacheEntry struct {
	Version   int               `msgpack:"version"`
	Config    Config            `msgpack:"config"`
	Recording *models.Recording `msgpack:"recording"`
}

func NewCache(dir string) *Cache {
	return &Cache{Dir: dir}
}

func (c *Cache) path(name string) string {
	return filepath.Join(c.Dir, name+cacheExt)
}

// Load returns the cached recording for name, or false on a miss.
func (c *Cache) Load(name string, cfg Config) (*models.Recording, bool, error) {
	data, err := os.ReadFile(c.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading cache entry %s: %w", name, err)
	}

	var entry cacheEntry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("%s: %w: %v", name, ErrCacheCorrupt, err)
	}
	if entry.Version != cacheVersion || entry.Config != cfg || entry.Recording == nil {
		return nil, false, nil
	}
	if err := entry.Recording.Validate(); err != nil {
		return nil, false, fmt.Errorf("%s: %w: %v", name, ErrCacheCorrupt, err)
	}
	return entry.Recording, true, nil
}

func (c *Cache) Store(rec *models.Recording, cfg Config) error {
	data, err := msgpack.Marshal(&cacheEntry{Version: cacheVersion, Config: cfg, Recording: rec})
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", rec.Name, err)
	}
	if err := utils.WriteFileAtomic(c.path(rec.Name), data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry %s: %w", rec.Name, err)
	}
	return nil
}
