package performance

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultCacheTTL bounds staleness of cached metrics. Metrics only change
// when new epochs run, so a short TTL is enough.
const DefaultCacheTTL = 15 * time.Minute

// Cache stores computed metrics in the cache database, msgpack-encoded.
// Entries expire by TTL; a cache miss is never an error. The cache database
// runs without durability guarantees, so every read must tolerate an empty
// table.
type Cache struct {
	cacheDB *sql.DB
	ttl     time.Duration
	log     zerolog.Logger
}

// NewCache creates a metrics cache with the given TTL (zero selects the
// default)
func NewCache(cacheDB *sql.DB, ttl time.Duration, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		cacheDB: cacheDB,
		ttl:     ttl,
		log:     log.With().Str("repo", "metrics_cache").Logger(),
	}
}

// MetricsKey builds the cache key for a metrics computation
func MetricsKey(portfolioID int64, start, end string) string {
	return fmt.Sprintf("metrics:%d:%s:%s", portfolioID, start, end)
}

// Get retrieves cached metrics, returning (nil, nil) on a miss or an
// expired entry
func (c *Cache) Get(key string) (*Metrics, error) {
	var payload []byte
	var expiresAt int64

	err := c.cacheDB.QueryRow(
		"SELECT payload, expires_at FROM metrics_cache WHERE cache_key = ?", key,
	).Scan(&payload, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics cache: %w", err)
	}

	if time.Now().Unix() >= expiresAt {
		return nil, nil
	}

	var metrics Metrics
	if err := msgpack.Unmarshal(payload, &metrics); err != nil {
		// A corrupt entry is treated as a miss
		c.log.Warn().Str("key", key).Err(err).Msg("Discarding undecodable cache entry")
		return nil, nil
	}

	return &metrics, nil
}

// Put stores metrics under a key with the cache TTL
func (c *Cache) Put(key string, metrics *Metrics) error {
	payload, err := msgpack.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}

	_, err = c.cacheDB.Exec(`
		INSERT OR REPLACE INTO metrics_cache (cache_key, payload, expires_at)
		VALUES (?, ?, ?)
	`, key, payload, time.Now().Add(c.ttl).Unix())
	if err != nil {
		return fmt.Errorf("failed to write metrics cache: %w", err)
	}

	return nil
}

// Purge removes expired entries
func (c *Cache) Purge() error {
	result, err := c.cacheDB.Exec(
		"DELETE FROM metrics_cache WHERE expires_at <= ?", time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to purge metrics cache: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n > 0 {
		c.log.Debug().Int64("removed", n).Msg("Purged expired cache entries")
	}

	return nil
}
