package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// registryVersion guards against future format changes.
const registryVersion = 1

// registryDocument is the on-disk shape of the cache registry: one JSON
// document mapping asset id to entry metadata, rewritten wholesale on
// every mutation.
type registryDocument struct {
	Version int               `json:"version"`
	Entries map[string]*Entry `json:"entries"`
}

// loadRegistry reads the registry document. A missing file yields an empty
// registry; a corrupt one is logged and also yields an empty registry, so
// a damaged document degrades to cache misses instead of a startup
// failure.
func (c *Cache) loadRegistry() map[string]*Entry {
	data, err := os.ReadFile(c.cfg.RegistryPath)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn(context.Background(), "cache registry unreadable, starting empty",
				"path", c.cfg.RegistryPath, "error", err.Error())
		}
		return make(map[string]*Entry)
	}

	doc := &registryDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		c.logger.Warn(context.Background(), "cache registry corrupt, starting empty",
			"path", c.cfg.RegistryPath, "error", err.Error())
		return make(map[string]*Entry)
	}
	if doc.Entries == nil {
		return make(map[string]*Entry)
	}
	return doc.Entries
}

// saveRegistryLocked atomically rewrites the registry document. Callers
// hold c.mu.
func (c *Cache) saveRegistryLocked() error {
	doc := &registryDocument{Version: registryVersion, Entries: c.entries}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.cfg.RegistryPath), 0o770); err != nil {
		return fmt.Errorf("creating registry dir: %w", err)
	}

	tmp := c.cfg.RegistryPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o660); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := os.Rename(tmp, c.cfg.RegistryPath); err != nil {
		return fmt.Errorf("replacing registry: %w", err)
	}
	return nil
}
