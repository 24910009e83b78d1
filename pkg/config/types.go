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

package config

import (
	"time"

	"github.com/IceFireDB/IceFireDB-Challenge/pkg/monitor"
)

type Config struct {
	Server             ServerS              `mapstructure:"server"`
	Log                LogS                 `mapstructure:"log"`
	PprofDebug         PprofDebugS          `mapstructure:"pprof_debug"`
	Download           DownloadS            `mapstructure:"download"`
	Upstream           UpstreamS            `mapstructure:"upstream"`
	Ingest             IngestS              `mapstructure:"ingest"`
	Sink               SinkS                `mapstructure:"sink"`
	PrometheusExporter monitor.ExporterConf `mapstructure:"prometheus_exporter"`
}

type ServerS struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogS struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
	OutPut string `mapstructure:"output"` // stdout, stderr or a file path
}

type PprofDebugS struct {
	Enable bool   `mapstructure:"enable"`
	Port   uint16 `mapstructure:"port"`
}

type DownloadS struct {
	Source string         `mapstructure:"source"` // file or s3
	Path   string         `mapstructure:"path"`
	S3     S3S            `mapstructure:"s3"`
	Cache  DownloadCacheS `mapstructure:"cache"`
}

type S3S struct {
	Bucket          string `mapstructure:"bucket"`
	Key             string `mapstructure:"key"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

type DownloadCacheS struct {
	Enable   bool          `mapstructure:"enable"`
	TTL      time.Duration `mapstructure:"ttl"`
	MaxBytes int64         `mapstructure:"max_bytes"`
}

// UpstreamS configures the /process_data fetch. RetryMaxElapsed zero disables retries.
type UpstreamS struct {
	URL             string        `mapstructure:"url"`
	Compressed      bool          `mapstructure:"compressed"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RetryMaxElapsed time.Duration `mapstructure:"retry_max_elapsed"`
}

type IngestS struct {
	ChunkSize      int  `mapstructure:"chunk_size"`
	MaxChunkSize   int  `mapstructure:"max_chunk_size"`
	MaxObjectBytes int  `mapstructure:"max_object_bytes"`
	StrictEOF      bool `mapstructure:"strict_eof"`
	MaxConcurrent  int  `mapstructure:"max_concurrent"`
}

type SinkS struct {
	Enable   bool          `mapstructure:"enable"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Stream   string        `mapstructure:"stream"`
	MaxLen   int64         `mapstructure:"max_len"`
	Timeout  time.Duration `mapstructure:"timeout"`
}
