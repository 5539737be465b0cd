package client

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
)

// cacheMetadata is the sidecar file describing one cached snapshot. A cache
// is trusted only if the hash recomputed over the data file matches
// ConfigDataHash, AppID/Environment match the running client's identity, and
// the snapshot is within the expiration window.
type cacheMetadata struct {
	AppID          string    `json:"app_id"`
	Environment    string    `json:"environment"`
	CachedAt       time.Time `json:"cached_at"`
	ConfigDataHash string    `json:"config_data_hash"`
}

// fileCache owns the local cache file pair for one (app, environment).
type fileCache struct {
	dir         string
	appID       string
	environment string
	expiration  time.Duration
}

func newFileCache(opts *Options) *fileCache {
	return &fileCache{
		dir:         opts.LocalCacheDirectory,
		appID:       opts.AppID,
		environment: opts.Environment,
		expiration:  time.Duration(opts.CacheExpirationMinutes) * time.Minute,
	}
}

func (fc *fileCache) dataPath() string {
	return filepath.Join(fc.dir, fmt.Sprintf("%s_%s.json", fc.appID, fc.environment))
}

func (fc *fileCache) metaPath() string {
	return filepath.Join(fc.dir, fmt.Sprintf("%s_%s.meta.json", fc.appID, fc.environment))
}

// Load reads and verifies the cache pair. Any integrity failure - missing
// files, hash mismatch, identity mismatch, expiry, corrupt JSON - is
// reported as a cache miss, never as a fatal error.
func (fc *fileCache) Load() (map[string]Value, bool) {
	metaRaw, err := os.ReadFile(fc.metaPath())
	if err != nil {
		return nil, false
	}
	var meta cacheMetadata
	if err := sonic.Unmarshal(metaRaw, &meta); err != nil {
		return nil, false
	}

	if meta.AppID != fc.appID || meta.Environment != fc.environment {
		return nil, false
	}
	if time.Since(meta.CachedAt) > fc.expiration {
		return nil, false
	}

	data, err := os.ReadFile(fc.dataPath())
	if err != nil {
		return nil, false
	}
	if hashData(data) != meta.ConfigDataHash {
		return nil, false
	}

	var configs map[string]Value
	if err := sonic.Unmarshal(data, &configs); err != nil {
		return nil, false
	}
	return configs, true
}

// Store persists a snapshot: data file first, then the metadata file that
// vouches for it. Both writes go through a temp file and rename so a reader
// never sees a half-written file.
func (fc *fileCache) Store(configs map[string]Value) error {
	if err := os.MkdirAll(fc.dir, 0o755); err != nil {
		return err
	}

	data, err := sonic.Marshal(configs)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(fc.dataPath(), data); err != nil {
		return err
	}

	meta := cacheMetadata{
		AppID:          fc.appID,
		Environment:    fc.environment,
		CachedAt:       time.Now().UTC(),
		ConfigDataHash: hashData(data),
	}
	metaRaw, err := sonic.Marshal(&meta)
	if err != nil {
		return err
	}
	return writeFileAtomic(fc.metaPath(), metaRaw)
}

// Clear deletes both cache files; subsequent loads fall back to the network.
func (fc *fileCache) Clear() error {
	dataErr := os.Remove(fc.dataPath())
	metaErr := os.Remove(fc.metaPath())
	if dataErr != nil && !os.IsNotExist(dataErr) {
		return dataErr
	}
	if metaErr != nil && !os.IsNotExist(metaErr) {
		return metaErr
	}
	return nil
}

func hashData(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
