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
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pingcap/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-Id"

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// httpError carries the status a handler failure is answered with.
type httpError struct {
	code int
	msg  string
}

func (e *httpError) Error() string { return e.msg }

func newHTTPError(code int, format string, args ...interface{}) error {
	return &httpError{code: code, msg: fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...interface{}) error {
	return newHTTPError(http.StatusBadRequest, format, args...)
}

type loggerKey struct{}

func withLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry)
}

func loggerFrom(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

type statusRecorder struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.code = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// handle registers h under pattern with request logging, metrics and error
// mapping.
func (s *Server) handle(mux *http.ServeMux, pattern string, h handlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.Must(uuid.NewV4()).String()
		log := logrus.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		if err := h(rec, r.WithContext(withLogger(r.Context(), log))); err != nil {
			if rec.wroteHeader {
				// status is on the wire already
				log.Errorf("response aborted: %+v", err)
			} else {
				writeError(rec, err, log)
			}
		}

		elapsed := time.Since(start)
		s.Metrics.ObserveRequest(pattern, rec.code, elapsed)
		log.WithFields(logrus.Fields{
			"status":   rec.code,
			"duration": elapsed,
		}).Info("request served")
	})
}

func writeError(w http.ResponseWriter, err error, log *logrus.Entry) {
	code := http.StatusInternalServerError
	msg := err.Error()
	if herr, ok := errors.Cause(err).(*httpError); ok {
		code = herr.code
		msg = herr.msg
	}
	if code >= http.StatusInternalServerError {
		log.Errorf("%+v", err)
	} else {
		log.Warn(msg)
	}
	writeText(w, code, msg)
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
}
