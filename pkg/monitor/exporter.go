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
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/IceFireDB/IceFireDB-Challenge/utils"
)

const Namespace = "challenge"

type ExporterConf struct {
	Enable  bool   `mapstructure:"enable"`
	Host    string `mapstructure:"host"`
	Address string `mapstructure:"address"`
}

func (e *ExporterConf) SetDefaultHostname() {
	if e.Host == "" {
		e.Host = utils.GetHostname()
	}
}

// Metrics holds every collector of the service on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	recordsDecoded prometheus.Counter
	recordsFailed  prometheus.Counter
	ingestRuns     *prometheus.CounterVec
	ingestInFlight prometheus.Gauge
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

func NewMetrics(host string) *Metrics {
	labels := prometheus.Labels{"host": host}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recordsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   Namespace,
			Subsystem:   "ingest",
			Name:        "records_decoded_total",
			Help:        "Count of records decoded from the upstream stream",
			ConstLabels: labels,
		}),
		recordsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   Namespace,
			Subsystem:   "ingest",
			Name:        "records_failed_total",
			Help:        "Count of objects that failed to decode",
			ConstLabels: labels,
		}),
		ingestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Subsystem:   "ingest",
			Name:        "runs_total",
			Help:        "Count of ingestion runs by result",
			ConstLabels: labels,
		}, []string{"result"}),
		ingestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Subsystem:   "ingest",
			Name:        "in_flight",
			Help:        "Ingestion runs currently streaming",
			ConstLabels: labels,
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "http_requests_total",
			Help:        "Count of HTTP requests by route and status",
			ConstLabels: labels,
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   Namespace,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency by route",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.recordsDecoded,
		m.recordsFailed,
		m.ingestRuns,
		m.ingestInFlight,
		m.requests,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) RecordDecoded() { m.recordsDecoded.Inc() }
func (m *Metrics) RecordFailed()  { m.recordsFailed.Inc() }

// IngestStarted marks a run as in flight and returns the function that ends it.
func (m *Metrics) IngestStarted() func(err error) {
	m.ingestInFlight.Inc()
	return func(err error) {
		m.ingestInFlight.Dec()
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.ingestRuns.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunPrometheusExporter serves /metrics on its own listener.
func RunPrometheusExporter(m *Metrics, c *ExporterConf) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	utils.GoWithRecover(func() {
		err := http.ListenAndServe(c.Address, mux)
		if err != nil {
			logrus.Error("prometheus exporter stopped: ", err)
		}
	}, nil)
}
