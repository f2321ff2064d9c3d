package app

import (
	"fmt"
	"strconv"
	"strings"

	"sapling/internal/core/config"
	"sapling/internal/data/grammarfile"
	"sapling/internal/engine/grammar"
	"sapling/internal/engine/validate"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheEntry struct {
	grammar *grammar.Grammar
	report  *validate.Report
	err     error
}

// reportCache memoizes validation results by document content. The key also
// covers every setting that changes the result, so a cached entry is never
// served for a different configuration.
type reportCache struct {
	entries     *lru.Cache[uint64, cacheEntry]
	fingerprint string
}

func newReportCache(size int, fingerprint string) *reportCache {
	c := &reportCache{fingerprint: fingerprint}
	if size > 0 {
		// lru.New only fails on a non-positive size.
		c.entries, _ = lru.New[uint64, cacheEntry](size)
	}
	return c
}

// key returns the cache key and the content hash recorded in history.
func (c *reportCache) key(data []byte, format grammarfile.Format) (uint64, string) {
	content := xxhash.Sum64(data)

	d := xxhash.New()
	_, _ = d.WriteString(strconv.FormatUint(content, 16))
	_, _ = d.WriteString("|" + string(format) + "|")
	_, _ = d.WriteString(c.fingerprint)
	return d.Sum64(), fmt.Sprintf("%016x", content)
}

func (c *reportCache) get(key uint64) (cacheEntry, bool) {
	if c == nil || c.entries == nil {
		return cacheEntry{}, false
	}
	return c.entries.Get(key)
}

func (c *reportCache) add(key uint64, entry cacheEntry) {
	if c == nil || c.entries == nil {
		return
	}
	c.entries.Add(key, entry)
}

func (c *reportCache) Len() int {
	if c == nil || c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

func (c *reportCache) Purge() {
	if c != nil && c.entries != nil {
		c.entries.Purge()
	}
}

func fingerprint(cfg *config.Config, opts validate.Options) string {
	parts := []string{
		fmt.Sprintf("%+v", opts),
		"disable=" + strings.Join(cfg.Diagnostics.Disable, ","),
		"ignore=" + strings.Join(cfg.Diagnostics.IgnoreRules, ","),
		"language=" + cfg.Language.Name,
	}
	return strings.Join(parts, ";")
}
