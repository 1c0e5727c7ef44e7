package gamedb

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheSize is the number of parsed databases kept between loads.
const cacheSize = 4

type cacheKey struct {
	path    string
	size    int64
	modTime int64
}

// Cache keeps recently parsed databases so reloading content does not
// re-read a database that has not changed on disk.
type Cache struct {
	dbs *lru.Cache[cacheKey, *DB]
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	dbs, err := lru.New[cacheKey, *DB](cacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &Cache{dbs: dbs}
}

// Open returns the database at path, parsing it only if it changed.
func (c *Cache) Open(path string) (*DB, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat RDB file: %w", err)
	}
	key := cacheKey{path: path, size: fi.Size(), modTime: fi.ModTime().UnixNano()}
	if db, ok := c.dbs.Get(key); ok {
		return db, nil
	}

	db, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.dbs.Add(key, db)
	return db, nil
}

// Lookup finds content by CRC32 in <dir>/<name>.rdb.
func (c *Cache) Lookup(dir, name string, crc uint32) (Entry, bool, error) {
	if dir == "" || name == "" {
		return Entry{}, false, nil
	}
	db, err := c.Open(filepath.Join(dir, name+".rdb"))
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := db.ByCRC32(crc)
	return e, ok, nil
}
