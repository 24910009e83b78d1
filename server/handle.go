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

package server

import (
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"

	"github.com/pingcap/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/IceFireDB/IceFireDB-Challenge/pkg/ipcalc"
	"github.com/IceFireDB/IceFireDB-Challenge/pkg/manifest"
	"github.com/IceFireDB/IceFireDB-Challenge/pkg/payload"
)

const (
	seekLocation     = "https://www.youtube.com/watch?v=9Gc4QTqslN4"
	downloadFilename = "myfile.gz"
	maxManifestBytes = 1 << 20
)

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "GET /{$}", s.handleRoot)
	s.handle(mux, "GET /-1/seek", s.handleSeek)
	s.handle(mux, "GET /2/dest", s.handleIP("key", ipcalc.ParseV4, ipcalc.DestV4))
	s.handle(mux, "GET /2/key", s.handleIP("to", ipcalc.ParseV4, ipcalc.KeyV4))
	s.handle(mux, "GET /2/v6/dest", s.handleIP("key", ipcalc.ParseV6, ipcalc.DestV6))
	s.handle(mux, "GET /2/v6/key", s.handleIP("to", ipcalc.ParseV6, ipcalc.KeyV6))
	s.handle(mux, "POST /5/manifest", s.handleManifest)
	s.handle(mux, "GET /download", s.handleDownload)
	s.handle(mux, "GET /process_data", s.handleProcessData)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) error {
	writeText(w, http.StatusOK, "Hello bird!")
	return nil
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Location", seekLocation)
	w.WriteHeader(http.StatusFound)
	return nil
}

// handleIP answers f(from, other) where other is read from the query key
// named other.
func (s *Server) handleIP(other string, parse func(string) (netip.Addr, error), f func(a, b netip.Addr) netip.Addr) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		from, err := queryAddr(r, "from", parse)
		if err != nil {
			return err
		}
		b, err := queryAddr(r, other, parse)
		if err != nil {
			return err
		}
		writeText(w, http.StatusOK, f(from, b).String())
		return nil
	}
}

func queryAddr(r *http.Request, name string, parse func(string) (netip.Addr, error)) (netip.Addr, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return netip.Addr{}, badRequest("missing query parameter `%s`", name)
	}
	addr, err := parse(v)
	if err != nil {
		return netip.Addr{}, badRequest("invalid `%s`: %v", name, err)
	}
	return addr, nil
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxManifestBytes))
	if err != nil {
		return badRequest("read body: %v", err)
	}

	out, err := manifest.Convert(body)
	switch {
	case err == nil:
	case errors.Cause(err) == manifest.ErrInvalidUTF8:
		return badRequest("Invalid UTF-8: %v", err)
	default:
		return newHTTPError(http.StatusNotFound, "%v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(out)
	return err
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) error {
	b, err := s.source.Load(r.Context())
	if err != nil {
		return newHTTPError(http.StatusInternalServerError, "Error reading file: %v", err)
	}

	etag := payload.ETag(b)
	w.Header().Set("ETag", etag)
	if etagMatch(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", "attachment; filename="+downloadFilename)
	w.Header().Set("Content-Length", fmt.Sprint(len(b)))
	_, err = w.Write(b)
	return err
}

func etagMatch(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func (s *Server) handleProcessData(w http.ResponseWriter, r *http.Request) error {
	in := s.ingester
	if v := r.URL.Query().Get("chunk_size"); v != "" {
		size, err := cast.ToIntE(v)
		if err != nil || size <= 0 {
			return badRequest("invalid `chunk_size`: %q", v)
		}
		if size > in.MaxChunkSize() {
			return badRequest("`chunk_size` %d exceeds the limit of %d", size, in.MaxChunkSize())
		}
		in = in.WithChunkSize(size)
	}

	if limit := s.conf.Ingest.MaxConcurrent; limit > 0 {
		if s.inFlight.Inc() > int32(limit) {
			s.inFlight.Dec()
			return newHTTPError(http.StatusServiceUnavailable, "too many concurrent ingestions, limit %d", limit)
		}
		defer s.inFlight.Dec()
	}

	ctx := r.Context()
	log := loggerFrom(ctx)
	done := s.Metrics.IngestStarted()

	body, err := s.upstream.Open(ctx)
	if err != nil {
		done(err)
		return errors.Annotate(err, "open upstream")
	}
	defer body.Close()

	res, err := in.Run(ctx, body, log)
	done(err)
	if err != nil {
		return errors.Annotatef(err, "ingest after %d records", res.Processed)
	}

	log.WithFields(logrus.Fields{
		"processed": res.Processed,
		"failed":    res.Failed,
	}).Info("ingestion finished")
	writeText(w, http.StatusOK, fmt.Sprintf("Successfully processed %d messages", res.Processed))
	return nil
}
