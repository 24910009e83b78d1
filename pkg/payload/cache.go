/*
 *
 *  * Licensed to the Apache Software Foundation (ASF) under one or more
 *  * contributor license agreements.  See the NOTICE file distributed with
 *  * this work for additional information regarding copyright ownership.
 *  * The ASF licenses this file to You under the Apache License, Version 2.0
 *  * (the "License"); you may not use this file except in compliance with
 *  * the License.  You may obtain a copy of the License at
 *  *
 *  *     http://www.apache.org/licenses/LICENSE-2.0
 *  *
 *  * Unless required by applicable law or agreed to in writing, software
 *  * distributed under the License is distributed on an "AS IS" BASIS,
 *  * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  * See the License for the specific language governing permissions and
 *  * limitations under the License.
 *
 */

package payload

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pingcap/errors"
)

const defaultCacheNumCounters = 1e4

// CachedSource keeps the last payload of its inner Source in memory for TTL.
type CachedSource struct {
	inner Source
	ttl   time.Duration
	cache *ristretto.Cache[string, []byte]
}

// NewCachedSource caches payloads up to maxBytes. A zero ttl keeps entries
// until they are evicted by size.
func NewCachedSource(inner Source, maxBytes int64, ttl time.Duration) (*CachedSource, error) {
	if maxBytes <= 0 {
		return nil, errors.New("cache size must be positive")
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters:        defaultCacheNumCounters,
		MaxCost:            maxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
		Cost: func(b []byte) int64 {
			return int64(len(b))
		},
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &CachedSource{inner: inner, ttl: ttl, cache: cache}, nil
}

func (c *CachedSource) Load(ctx context.Context) ([]byte, error) {
	key := c.inner.String()
	if b, ok := c.cache.Get(key); ok {
		return b, nil
	}

	b, err := c.inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetWithTTL(key, b, 0, c.ttl)
	c.cache.Wait()
	return b, nil
}

func (c *CachedSource) String() string {
	return "cached:" + c.inner.String()
}

// Close releases the cache goroutines.
func (c *CachedSource) Close() {
	c.cache.Close()
}
