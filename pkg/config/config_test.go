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
	"bytes"
	"testing"
	"time"

	"github.com/pingcap/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yaml)))
	return v
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, ":8000", c.Server.Addr)
	assert.Equal(t, 5*time.Second, c.Server.ShutdownTimeout)
	assert.Equal(t, SourceFile, c.Download.Source)
	assert.Equal(t, "gizpdata.gz", c.Download.Path)
	assert.Equal(t, "http://localhost:8000/download", c.Upstream.URL)
	assert.True(t, c.Upstream.Compressed)
	assert.Equal(t, 8192, c.Ingest.ChunkSize)
	assert.False(t, c.Ingest.StrictEOF)
	assert.Equal(t, 1<<20, c.Ingest.MaxChunkSize)
	assert.False(t, c.Sink.Enable)
	assert.Equal(t, 5*time.Second, c.Sink.Timeout)
	assert.NotEmpty(t, c.PrometheusExporter.Address)
}

func TestLoad_File(t *testing.T) {
	c, err := Load(newViper(t, `
server:
  addr: ":9000"
  shutdown_timeout: 2s
download:
  source: s3
  s3:
    bucket: birds
    key: data.gz
    use_path_style: true
  cache:
    enable: true
    ttl: 30s
ingest:
  chunk_size: 1024
  strict_eof: true
sink:
  enable: true
  stream: birds
  max_len: 1000
  timeout: 250ms
`))
	require.NoError(t, err)

	assert.Equal(t, ":9000", c.Server.Addr)
	assert.Equal(t, 2*time.Second, c.Server.ShutdownTimeout)
	assert.Equal(t, SourceS3, c.Download.Source)
	assert.Equal(t, "birds", c.Download.S3.Bucket)
	assert.True(t, c.Download.S3.UsePathStyle)
	assert.True(t, c.Download.Cache.Enable)
	assert.Equal(t, 30*time.Second, c.Download.Cache.TTL)
	assert.Equal(t, 1024, c.Ingest.ChunkSize)
	assert.True(t, c.Ingest.StrictEOF)
	assert.Equal(t, int64(1000), c.Sink.MaxLen)
	assert.Equal(t, 250*time.Millisecond, c.Sink.Timeout)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("CHALLENGE_SERVER_ADDR", ":7000")
	t.Setenv("CHALLENGE_INGEST_CHUNK_SIZE", "64")
	t.Setenv("CHALLENGE_UPSTREAM_TIMEOUT", "3s")

	c, err := Load(newViper(t, "server:\n  addr: \":9000\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", c.Server.Addr)
	assert.Equal(t, 64, c.Ingest.ChunkSize)
	assert.Equal(t, 3*time.Second, c.Upstream.Timeout)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(newViper(t, "download:\n  source: ftp\n"))
	require.Error(t, err)
	assert.Equal(t, ErrUnknownSource, errors.Cause(err))

	_, err = Load(newViper(t, "ingest:\n  chunk_size: 0\n"))
	assert.Error(t, err)

	_, err = Load(newViper(t, "ingest:\n  chunk_size: 4096\n  max_chunk_size: 1024\n"))
	assert.Error(t, err)

	_, err = Load(newViper(t, "upstream:\n  url: \"\"\n"))
	assert.Error(t, err)
}
