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

// Package ingest drives a byte source through the array splitter and decodes
// every completed object into a Record.
package ingest

import (
	"context"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/pingcap/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/IceFireDB/IceFireDB-Challenge/pkg/jsonstream"
)

const (
	// DefaultChunkSize is the read size used when Options.ChunkSize is not set.
	DefaultChunkSize = 8192
	// DefaultMaxChunkSize caps the read size when Options.MaxChunkSize is not set.
	DefaultMaxChunkSize = 1 << 20
)

const progressEvery = 1000

var (
	// ErrTruncated is returned in strict mode when the source ends inside an object.
	ErrTruncated = jsonstream.ErrTruncated
	// ErrObjectTooLarge is returned when a single object outgrows MaxObjectBytes.
	ErrObjectTooLarge = errors.New("ingest: object exceeds size limit")
)

// Publisher receives every successfully decoded record together with its
// raw JSON text. A publish error aborts the run.
type Publisher interface {
	Publish(ctx context.Context, rec Record, raw string) error
}

// Observer is notified about per-record outcomes.
type Observer interface {
	RecordDecoded()
	RecordFailed()
}

type Options struct {
	// ChunkSize is the fixed read size. Any value >= 1 yields the same result.
	ChunkSize int
	// MaxChunkSize caps ChunkSize and every WithChunkSize override.
	MaxChunkSize int
	// MaxObjectBytes bounds the in-flight object. Zero disables the check.
	MaxObjectBytes int
	// StrictEOF turns a truncated trailing object into ErrTruncated instead of a warning.
	StrictEOF bool
}

// Result is the outcome of one run.
type Result struct {
	Processed int
	Failed    int
}

// Ingester decodes one stream per Run call. It holds no per-stream state, so
// a single Ingester may serve concurrent runs.
type Ingester struct {
	opts      Options
	publisher Publisher
	observer  Observer
	log       *logrus.Entry
}

func New(opts Options, publisher Publisher, observer Observer) *Ingester {
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkSize > opts.MaxChunkSize {
		opts.ChunkSize = opts.MaxChunkSize
	}
	return &Ingester{
		opts:      opts,
		publisher: publisher,
		observer:  observer,
		log:       logrus.WithField("component", "ingest"),
	}
}

// WithChunkSize returns a copy of the Ingester reading size bytes at a time,
// clamped to MaxChunkSize.
func (in *Ingester) WithChunkSize(size int) *Ingester {
	cp := *in
	if size > 0 {
		cp.opts.ChunkSize = min(size, cp.opts.MaxChunkSize)
	}
	return &cp
}

func (in *Ingester) MaxChunkSize() int {
	return in.opts.MaxChunkSize
}

// Run reads src until EOF. Read failures end the run with an error, objects
// that fail to decode are logged and skipped.
func (in *Ingester) Run(ctx context.Context, src io.Reader, log *logrus.Entry) (Result, error) {
	if log == nil {
		log = in.log
	}

	var (
		res    Result
		index  int
		stream = jsonstream.NewArrayStream()
		text   = transform.NewReader(src, unicode.UTF8.NewDecoder())
		buf    = make([]byte, in.opts.ChunkSize)
	)

	for {
		if err := ctx.Err(); err != nil {
			return res, errors.Trace(err)
		}

		n, err := text.Read(buf)
		if n > 0 {
			for _, obj := range stream.ProcessChunk(buf[:n]) {
				index++
				if perr := in.handle(ctx, obj, index, &res, log); perr != nil {
					return res, perr
				}
			}
			if in.opts.MaxObjectBytes > 0 && stream.Buffered() > in.opts.MaxObjectBytes {
				return res, errors.Annotatef(ErrObjectTooLarge, "object %d holds %d bytes, limit %d",
					index+1, stream.Buffered(), in.opts.MaxObjectBytes)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, errors.Annotate(err, "read source")
		}
	}

	if !stream.Started() {
		log.Warn("source ended before a JSON array was opened")
	}
	if err := stream.Finish(); err != nil {
		if in.opts.StrictEOF {
			return res, errors.Annotatef(err, "after %d objects", index)
		}
		log.Warnf("source ended inside object %d, partial object dropped", index+1)
	}
	return res, nil
}

func (in *Ingester) handle(ctx context.Context, obj string, index int, res *Result, log *logrus.Entry) error {
	rec, err := DecodeRecord(obj)
	if err != nil {
		res.Failed++
		if in.observer != nil {
			in.observer.RecordFailed()
		}
		log.WithField("object", index).Errorf("failed to parse JSON object: %v", err)
		return nil
	}

	if in.publisher != nil {
		if err := in.publisher.Publish(ctx, rec, obj); err != nil {
			return errors.Annotatef(err, "publish record %q", rec.ID)
		}
	}

	res.Processed++
	if in.observer != nil {
		in.observer.RecordDecoded()
	}
	if res.Processed%progressEvery == 0 {
		log.Infof("processed %d records", res.Processed)
	}
	if log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		log.Debug(spew.Sdump(rec))
	}
	return nil
}
