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
	"net"
	"net/http"

	"github.com/pingcap/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/IceFireDB/IceFireDB-Challenge/pkg/config"
	"github.com/IceFireDB/IceFireDB-Challenge/pkg/ingest"
	"github.com/IceFireDB/IceFireDB-Challenge/pkg/monitor"
	"github.com/IceFireDB/IceFireDB-Challenge/pkg/payload"
	"github.com/IceFireDB/IceFireDB-Challenge/pkg/sink"
	"github.com/IceFireDB/IceFireDB-Challenge/pkg/upstream"
)

type Server struct {
	conf *config.Config

	source   payload.Source
	cache    *payload.CachedSource
	upstream *upstream.Client
	ingester *ingest.Ingester
	sink     *sink.RedisStream
	Metrics  *monitor.Metrics

	inFlight *atomic.Int32
	httpSrv  *http.Server
}

func New(c *config.Config) (*Server, error) {
	if c == nil {
		return nil, config.ErrConfigNotInit
	}
	s := &Server{
		conf:     c,
		Metrics:  monitor.NewMetrics(c.PrometheusExporter.Host),
		inFlight: atomic.NewInt32(0),
	}

	var err error
	s.source, err = s.newSource()
	if err != nil {
		return nil, err
	}

	s.upstream = upstream.New(upstream.Options{
		URL:        c.Upstream.URL,
		Compressed: c.Upstream.Compressed,
		Timeout:    c.Upstream.Timeout,
		MaxElapsed: c.Upstream.RetryMaxElapsed,
	}, nil)

	var publisher ingest.Publisher
	if c.Sink.Enable {
		s.sink = sink.NewRedisStream(sink.RedisOptions{
			Addr:     c.Sink.Addr,
			Password: c.Sink.Password,
			DB:       c.Sink.DB,
			Stream:   c.Sink.Stream,
			MaxLen:   c.Sink.MaxLen,
			Timeout:  c.Sink.Timeout,
		})
		if err := s.sink.Ping(context.Background()); err != nil {
			s.Close()
			return nil, errors.Annotatef(err, "connect sink %s", c.Sink.Addr)
		}
		logrus.Infof("publishing records to redis stream on %s", c.Sink.Addr)
		publisher = s.sink
	}

	s.ingester = ingest.New(ingest.Options{
		ChunkSize:      c.Ingest.ChunkSize,
		MaxChunkSize:   c.Ingest.MaxChunkSize,
		MaxObjectBytes: c.Ingest.MaxObjectBytes,
		StrictEOF:      c.Ingest.StrictEOF,
	}, publisher, s.Metrics)

	s.httpSrv = &http.Server{
		Addr:         c.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  c.Server.ReadTimeout,
		WriteTimeout: c.Server.WriteTimeout,
		IdleTimeout:  c.Server.IdleTimeout,
	}
	return s, nil
}

func (s *Server) newSource() (payload.Source, error) {
	d := s.conf.Download

	var src payload.Source
	switch d.Source {
	case config.SourceS3:
		s3src, err := payload.NewS3Source(payload.S3Options{
			Bucket:          d.S3.Bucket,
			Key:             d.S3.Key,
			Region:          d.S3.Region,
			Endpoint:        d.S3.Endpoint,
			AccessKeyID:     d.S3.AccessKeyID,
			SecretAccessKey: d.S3.SecretAccessKey,
			UsePathStyle:    d.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		src = s3src
	default:
		src = payload.FileSource{Path: d.Path}
	}

	if d.Cache.Enable {
		cached, err := payload.NewCachedSource(src, d.Cache.MaxBytes, d.Cache.TTL)
		if err != nil {
			return nil, err
		}
		s.cache = cached
		src = cached
	}
	logrus.Infof("download payload source: %s", src)
	return src, nil
}

// Run serves until ctx is canceled. The listen result, nil on success, is
// sent on errSignal before serving starts.
func (s *Server) Run(ctx context.Context, errSignal chan error) {
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		errSignal <- errors.Annotatef(err, "listen %s", s.httpSrv.Addr)
		return
	}
	errSignal <- nil
	logrus.Infof("http server listening on %s", ln.Addr())

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.conf.Server.ShutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			logrus.Warnf("http server shutdown: %v", err)
		}
	}()

	if err := s.httpSrv.Serve(ln); err == http.ErrServerClosed {
		<-stopped
	} else {
		logrus.Errorf("http server stopped: %v", err)
	}
	s.Close()
}

func (s *Server) Close() {
	if s.sink != nil {
		_ = s.sink.Close()
	}
	if s.cache != nil {
		s.cache.Close()
	}
}
