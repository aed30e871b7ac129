package batchcache

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/totes/aws/s3"
	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/logger"
)

// Cache records the batch ids that have been fully merged into the warehouse.
// The record is the object cache.txt plus one marker object per batch under _cache/.
// Markers are written before cache.txt so an entry lost to a concurrent overwrite of cache.txt
// is restored by the next Load.
type Cache struct {
	log    logger.Logger
	client s3.BasicClient
}

func NewCache(log logger.Logger, client s3.BasicClient) *Cache {
	return &Cache{log: log, client: client}
}

// Load returns the processed batch ids.
// A missing cache.txt is created empty.
func (c *Cache) Load() (*Set, error) {
	data, err := c.client.Get(constants.CacheKey)
	if err == s3.ErrKeyNotFound {
		c.log.Info("creating empty batch cache ", constants.CacheKey)
		if err = c.client.Put(constants.CacheKey, []byte{}); err != nil {
			return nil, errors.Wrap(err, "error creating batch cache")
		}
		data, err = nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "error reading batch cache")
	}
	cached := NewSet(parseLines(string(data))...)
	keys, err := c.client.List(constants.CacheMarkerPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "error listing batch cache markers")
	}
	marked := NewSet()
	for _, k := range keys {
		marked.Add(strings.TrimPrefix(k, constants.CacheMarkerPrefix))
	}
	retval := cached.Union(marked)
	if n := retval.Len() - cached.Len(); n > 0 { // if markers hold entries lost from cache.txt...
		c.log.Debug("restored ", n, " batch(es) missing from ", constants.CacheKey, " using markers")
	}
	c.log.Debug("batch cache contains ", retval.Len(), " batch(es)")
	return retval, nil
}

// Save overwrites cache.txt with ids, one per line in chronological order.
func (c *Cache) Save(ids *Set) error {
	content := strings.Join(ids.Sorted(), "\n")
	if err := c.client.Put(constants.CacheKey, []byte(content)); err != nil {
		return errors.Wrap(err, "error saving batch cache")
	}
	return nil
}

// MarkProcessed records batchID as merged.
func (c *Cache) MarkProcessed(batchID string) error {
	if err := c.client.Put(constants.CacheMarkerPrefix+batchID, []byte{}); err != nil {
		return errors.Wrapf(err, "error writing batch cache marker for %q", batchID)
	}
	ids, err := c.Load()
	if err != nil {
		return err
	}
	ids.Add(batchID)
	return c.Save(ids)
}

// Pending returns the ids in present that are not in the cache, in chronological order.
func (c *Cache) Pending(present []string) ([]string, error) {
	done, err := c.Load()
	if err != nil {
		return nil, err
	}
	return Pending(present, done), nil
}

// Pending returns present minus done, in chronological order.
func Pending(present []string, done *Set) []string {
	retval := make([]string, 0, len(present))
	for _, id := range present {
		if !done.Contains(id) {
			retval = append(retval, id)
		}
	}
	return sortBatchIDs(retval)
}

func parseLines(s string) []string {
	lines := strings.Split(s, "\n")
	retval := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			retval = append(retval, l)
		}
	}
	return retval
}
