// Package remotestore backs Environment.Tempdir with an object-store
// bucket when it names one (a gs:// URI), registering a VSIKeyReader with
// the underlying raster library under the gs:// prefix.
package remotestore

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// Cacher caches fixed-size blocks of a remote object, keyed by object name
// and block id.
type Cacher interface {
	Add(key string, blockID uint, data []byte)
	Get(key string, blockID uint) ([]byte, bool)
	PurgeKey(key string)
}

// Cache is an in-memory LRU-backed Cacher. Adapted from this corpus's own
// LRU block cache; unlike that cache's BlockCache companion, rastercalc
// never fans a single read out across goroutines -- the operation driver
// is single-threaded, so there is no concurrent-range-fetch machinery to
// carry over, only the cache itself.
type Cache struct {
	c      *lru.Cache
	random string
}

var _ Cacher = &Cache{}

// NewCache returns a Cache holding at most entries blocks.
func NewCache(entries uint) (*Cache, error) {
	c, err := lru.New(int(entries))
	if err != nil {
		return nil, fmt.Errorf("lru.new: %w", err)
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	letters := []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	b := make([]rune, 5)
	for i := range b {
		b[i] = letters[r.Intn(len(letters))]
	}
	return &Cache{c: c, random: string(b)}, nil
}

func (cg *Cache) Add(key string, id uint, data []byte) {
	cg.c.Add(skey(key, cg.random, id), data)
}

func (cg *Cache) Get(key string, id uint) ([]byte, bool) {
	cb, ok := cg.c.Get(skey(key, cg.random, id))
	if !ok {
		return nil, false
	}
	return cb.([]byte), true
}

func (cg *Cache) PurgeKey(prefix string) {
	prefix = fmt.Sprintf("%s-%s-", prefix, cg.random)
	for _, k := range cg.c.Keys() {
		if strings.HasPrefix(k.(string), prefix) {
			cg.c.Remove(k)
		}
	}
}

func skey(key, random string, id uint) string {
	return fmt.Sprintf("%s-%s-%d", key, random, id)
}
