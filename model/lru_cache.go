// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package model

import (
	"container/list"
	"sync"

	"github.com/xuri/formula/parser"
)

// parseCache is an LRU cache of parsed formulas keyed by sheet and formula
// text. When the cache is full, the least recently used formula is evicted.
type parseCache struct {
	mu       sync.Mutex
	capacity int
	cache    map[string]*list.Element
	lruList  *list.List
	hits     int
}

type parseEntry struct {
	key     string
	formula *parser.Formula
}

func newParseCache(capacity int) *parseCache {
	return &parseCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lruList:  list.New(),
	}
}

func parseKey(sheet, text string) string { return sheet + "\x00" + text }

// Load returns the cached parse of text on sheet and moves it to the front.
func (c *parseCache) Load(sheet, text string) (*parser.Formula, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[parseKey(sheet, text)]; ok {
		c.lruList.MoveToFront(elem)
		c.hits++
		return elem.Value.(*parseEntry).formula, true
	}
	return nil, false
}

// Store adds a parsed formula, evicting the least recently used one if the
// cache is at capacity. Returns true if an entry was evicted.
func (c *parseCache) Store(sheet, text string, f *parser.Formula) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := parseKey(sheet, text)
	if elem, ok := c.cache[key]; ok {
		c.lruList.MoveToFront(elem)
		elem.Value.(*parseEntry).formula = f
		return false
	}
	if c.capacity <= 0 {
		return false
	}

	evicted := false
	if c.lruList.Len() >= c.capacity {
		if oldest := c.lruList.Back(); oldest != nil {
			c.lruList.Remove(oldest)
			delete(c.cache, oldest.Value.(*parseEntry).key)
			evicted = true
		}
	}
	c.cache[key] = c.lruList.PushFront(&parseEntry{key: key, formula: f})
	return evicted
}

// Len returns the number of cached formulas.
func (c *parseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lruList.Len()
}

// Hits returns the number of successful loads.
func (c *parseCache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hits
}
