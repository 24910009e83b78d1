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
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"

	"github.com/IceFireDB/IceFireDB-Challenge/pkg/monitor"
)

type headerCountingWriter struct {
	*httptest.ResponseRecorder
	headers int
}

func (w *headerCountingWriter) WriteHeader(code int) {
	w.headers++
	w.ResponseRecorder.WriteHeader(code)
}

func serveOnce(h handlerFunc) *headerCountingWriter {
	s := &Server{Metrics: monitor.NewMetrics("test")}
	mux := http.NewServeMux()
	s.handle(mux, "GET /x", h)

	w := &headerCountingWriter{ResponseRecorder: httptest.NewRecorder()}
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w
}

func TestHandle_ErrorAfterHeaders(t *testing.T) {
	w := serveOnce(func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("Content-Type", "application/gzip")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "partial")
		return errors.New("client went away")
	})
	assert.Equal(t, 1, w.headers)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial", w.Body.String())
}

func TestHandle_ErrorAfterImplicitHeaders(t *testing.T) {
	w := serveOnce(func(w http.ResponseWriter, r *http.Request) error {
		_, _ = io.WriteString(w, "partial")
		return errors.New("client went away")
	})
	assert.Equal(t, 0, w.headers)
	assert.Equal(t, "partial", w.Body.String())
}

func TestHandle_ErrorBeforeHeaders(t *testing.T) {
	w := serveOnce(func(w http.ResponseWriter, r *http.Request) error {
		return badRequest("nope")
	})
	assert.Equal(t, 1, w.headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "nope", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}
