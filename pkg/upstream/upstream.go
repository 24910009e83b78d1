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

// Package upstream fetches the compressed record stream that /process_data
// consumes.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/pingcap/errors"
	"github.com/sirupsen/logrus"
)

type Options struct {
	URL string
	// Compressed wraps the body in a gzip reader.
	Compressed bool
	// Timeout bounds each attempt up to the response headers.
	Timeout time.Duration
	// MaxElapsed bounds the whole retry loop. Zero disables retries.
	MaxElapsed time.Duration
}

type Client struct {
	opts Options
	http *http.Client
}

func New(opts Options, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: opts.Timeout,
				// the body is gzip already, keep the transport from negotiating it again
				DisableCompression: true,
			},
		}
	}
	return &Client{opts: opts, http: hc}
}

// StatusError reports a non-2xx answer from upstream.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream answered %d %s", e.Code, http.StatusText(e.Code))
}

// Open returns the decompressed body. Connection errors and 5xx answers are
// retried with exponential backoff; 4xx answers are not.
func (c *Client) Open(ctx context.Context) (io.ReadCloser, error) {
	var resp *http.Response

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.URL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		r, err := c.http.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode/100 != 2 {
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			serr := &StatusError{Code: r.StatusCode}
			if r.StatusCode >= 500 {
				return serr
			}
			return backoff.Permanent(serr)
		}
		resp = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logrus.WithField("url", c.opts.URL).Warnf("upstream attempt %d failed: %v, retrying in %s", attempt, err, wait)
	}

	if err := backoff.RetryNotify(op, c.policy(ctx), notify); err != nil {
		return nil, errors.Annotatef(err, "fetch %s", c.opts.URL)
	}

	if !c.opts.Compressed {
		return resp.Body, nil
	}

	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, errors.Annotate(err, "open gzip stream")
	}
	return &gzipBody{Reader: zr, body: resp.Body}, nil
}

func (c *Client) policy(ctx context.Context) backoff.BackOff {
	if c.opts.MaxElapsed <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = c.opts.MaxElapsed
	return backoff.WithContext(b, ctx)
}

type gzipBody struct {
	*gzip.Reader
	body io.ReadCloser
}

func (g *gzipBody) Close() error {
	zerr := g.Reader.Close()
	berr := g.body.Close()
	if zerr != nil {
		return zerr
	}
	return berr
}
