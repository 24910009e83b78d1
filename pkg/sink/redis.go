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

// Package sink forwards decoded records to an external stream.
package sink

import (
	"context"
	"time"

	"github.com/pingcap/errors"
	"github.com/redis/go-redis/v9"

	"github.com/IceFireDB/IceFireDB-Challenge/pkg/ingest"
)

const defaultStream = "challenge:records"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Stream is the key entries are appended to.
	Stream string
	// MaxLen trims the stream approximately. Zero keeps every entry.
	MaxLen int64
	// Timeout bounds each XADD.
	Timeout time.Duration
}

// RedisStream appends every record to a Redis stream, keyed by record id.
type RedisStream struct {
	client  redis.UniversalClient
	stream  string
	maxLen  int64
	timeout time.Duration
}

func NewRedisStream(opts RedisOptions) *RedisStream {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisStreamWithClient(client, opts)
}

func NewRedisStreamWithClient(client redis.UniversalClient, opts RedisOptions) *RedisStream {
	if opts.Stream == "" {
		opts.Stream = defaultStream
	}
	return &RedisStream{
		client:  client,
		stream:  opts.Stream,
		maxLen:  opts.MaxLen,
		timeout: opts.Timeout,
	}
}

// Ping checks connectivity at startup.
func (s *RedisStream) Ping(ctx context.Context) error {
	return errors.Trace(s.client.Ping(ctx).Err())
}

func (s *RedisStream) Publish(ctx context.Context, rec ingest.Record, raw string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"id":      rec.ID,
			"payload": raw,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	return errors.Trace(s.client.XAdd(ctx, args).Err())
}

func (s *RedisStream) Close() error {
	return s.client.Close()
}
