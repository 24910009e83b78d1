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

package monitor

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics("host-1")

	m.RecordDecoded()
	m.RecordDecoded()
	m.RecordFailed()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.recordsDecoded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordsFailed))

	done := m.IngestStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestInFlight))
	done(nil)
	m.IngestStarted()(errors.New("boom"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ingestInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestRuns.WithLabelValues("error")))

	m.ObserveRequest("/", 200, 3*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/", "200")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("host-1")
	m.RecordDecoded()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `challenge_ingest_records_decoded_total{host="host-1"} 1`)
}

func TestExporterConf_SetDefaultHostname(t *testing.T) {
	c := &ExporterConf{Host: "fixed"}
	c.SetDefaultHostname()
	assert.Equal(t, "fixed", c.Host)
}
