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
	"strings"
	"time"

	"github.com/pingcap/errors"
	"github.com/spf13/viper"
)

var (
	ErrConfigNotInit       = errors.New("config not init")
	ErrDuplicateInitConfig = errors.New("duplicate init config")
	ErrUnknownSource       = errors.New("download.source must be file or s3")
)

const (
	SourceFile = "file"
	SourceS3   = "s3"

	EnvPrefix = "CHALLENGE"
)

// Global configuration, read-only after InitConfig.
var _config *Config

// SetDefaults registers every key so environment overrides apply even when
// the config file omits a section.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.idle_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("pprof_debug.enable", false)
	v.SetDefault("pprof_debug.port", 16060)

	v.SetDefault("download.source", SourceFile)
	v.SetDefault("download.path", "gizpdata.gz")
	v.SetDefault("download.s3.bucket", "")
	v.SetDefault("download.s3.key", "")
	v.SetDefault("download.s3.region", "us-east-1")
	v.SetDefault("download.s3.endpoint", "")
	v.SetDefault("download.s3.access_key_id", "")
	v.SetDefault("download.s3.secret_access_key", "")
	v.SetDefault("download.s3.use_path_style", false)
	v.SetDefault("download.cache.enable", false)
	v.SetDefault("download.cache.ttl", time.Minute)
	v.SetDefault("download.cache.max_bytes", 64<<20)

	v.SetDefault("upstream.url", "http://localhost:8000/download")
	v.SetDefault("upstream.compressed", true)
	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("upstream.retry_max_elapsed", 10*time.Second)

	v.SetDefault("ingest.chunk_size", 8192)
	v.SetDefault("ingest.max_chunk_size", 1<<20)
	v.SetDefault("ingest.max_object_bytes", 0)
	v.SetDefault("ingest.strict_eof", false)
	v.SetDefault("ingest.max_concurrent", 4)

	v.SetDefault("sink.enable", false)
	v.SetDefault("sink.addr", "127.0.0.1:6379")
	v.SetDefault("sink.password", "")
	v.SetDefault("sink.db", 0)
	v.SetDefault("sink.stream", "challenge:records")
	v.SetDefault("sink.max_len", 0)
	v.SetDefault("sink.timeout", 5*time.Second)

	v.SetDefault("prometheus_exporter.enable", false)
	v.SetDefault("prometheus_exporter.host", "")
	v.SetDefault("prometheus_exporter.address", ":19090")
}

// BindEnv maps CHALLENGE_SECTION_KEY variables onto section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates v without touching the global configuration.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Annotate(err, "unmarshal config")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.PrometheusExporter.SetDefaultHostname()
	return &c, nil
}

func (c *Config) validate() error {
	switch c.Download.Source {
	case SourceFile, SourceS3:
	default:
		return errors.Annotatef(ErrUnknownSource, "got %q", c.Download.Source)
	}
	if c.Ingest.ChunkSize <= 0 {
		return errors.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkSize > c.Ingest.MaxChunkSize {
		return errors.Errorf("ingest.chunk_size %d exceeds ingest.max_chunk_size %d", c.Ingest.ChunkSize, c.Ingest.MaxChunkSize)
	}
	if c.Ingest.MaxObjectBytes < 0 {
		return errors.Errorf("ingest.max_object_bytes must not be negative, got %d", c.Ingest.MaxObjectBytes)
	}
	if c.Upstream.URL == "" {
		return errors.New("upstream.url is required")
	}
	return nil
}

func InitConfig() error {
	if _config != nil {
		return ErrDuplicateInitConfig
	}
	c, err := Load(viper.GetViper())
	if err != nil {
		return err
	}
	_config = c
	return nil
}

func Get() *Config {
	return _config
}
