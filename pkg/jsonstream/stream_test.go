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

package jsonstream

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(s *ArrayStream, input string, size int) []string {
	var out []string
	data := []byte(input)
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		out = append(out, s.ProcessChunk(data[:n])...)
		data = data[n:]
	}
	return out
}

func TestArrayStream_SingleObjects(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty array", `[]`, nil},
		{"padded empty array", " \n\t[ ]\n", nil},
		{"braces inside string", `[{"a":"}{"}]`, []string{`{"a":"}{"}`}},
		{"separators dropped", `[ {"a":1} , {"b":2} ]`, []string{`{"a":1}`, `{"b":2}`}},
		{"inner whitespace kept", "[{ \"a\" :\n 1 }]", []string{"{ \"a\" :\n 1 }"}},
		{"nested objects", `[{"a":{"b":{"c":1}}},{"d":[{"e":2}]}]`, []string{`{"a":{"b":{"c":1}}}`, `{"d":[{"e":2}]}`}},
		{"escaped quote", `[{"a":"say \"}\" now"}]`, []string{`{"a":"say \"}\" now"}`}},
		{"escaped backslash before close", `[{"a":"c:\\"},{"b":"{"}]`, []string{`{"a":"c:\\"}`, `{"b":"{"}`}},
		{"unicode escape", `[{"a":"\u007b"}]`, []string{`{"a":"\u007b"}`}},
		{"multi byte text", `[{"a":"héllo 世界 🐦"}]`, []string{`{"a":"héllo 世界 🐦"}`}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewArrayStream()
			got := s.ProcessChunk([]byte(tc.input))
			assert.Equal(t, tc.want, got)
			assert.False(t, s.Pending())
			assert.Zero(t, s.Buffered())
			assert.NoError(t, s.Finish())
		})
	}
}

func TestArrayStream_ChunkBoundaryInvariance(t *testing.T) {
	input := `  [{"name":"a","bio":"{\"x\": [1,2]}"}, {"name":"b\\","nested":{"k":"}"}},` +
		"\n" + `{"name":"ü€𝄞","version":1.5}]  `
	whole := NewArrayStream().ProcessChunk([]byte(input))
	require.Len(t, whole, 3)

	for size := 1; size <= len(input); size++ {
		got := feed(NewArrayStream(), input, size)
		require.Equal(t, whole, got, "chunk size %d", size)
	}
}

func TestArrayStream_RandomSplits(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	var elems []map[string]interface{}
	for i := 0; i < 50; i++ {
		elems = append(elems, map[string]interface{}{
			"id":      fmt.Sprintf("%d", i),
			"text":    strings.Repeat(`{"}\`, i%5) + "ßø",
			"version": float64(i) / 4,
			"inner":   map[string]interface{}{"list": []interface{}{i, "]", "{"}},
		})
	}
	raw, err := json.MarshalIndent(elems, "", "  ")
	require.NoError(t, err)

	for round := 0; round < 20; round++ {
		s := NewArrayStream()
		var got []string
		data := raw
		for len(data) > 0 {
			n := 1 + rnd.Intn(64)
			if n > len(data) {
				n = len(data)
			}
			got = append(got, s.ProcessChunk(data[:n])...)
			data = data[n:]
		}
		require.Len(t, got, len(elems))
		for i, text := range got {
			var decoded map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(text), &decoded))
			want, err := json.Marshal(elems[i])
			require.NoError(t, err)
			have, err := json.Marshal(decoded)
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(have))
		}
	}
}

func TestArrayStream_Truncated(t *testing.T) {
	s := NewArrayStream()
	out := s.ProcessChunk([]byte(`[{"a":1},{"b":"unterminated`))
	assert.Equal(t, []string{`{"a":1}`}, out)
	assert.True(t, s.Pending())
	assert.Equal(t, len(`{"b":"unterminated`), s.Buffered())

	err := s.Finish()
	assert.Equal(t, ErrTruncated, errors.Cause(err))
	assert.False(t, s.Pending())
	assert.Zero(t, s.Buffered())
}

func TestArrayStream_UnbalancedClose(t *testing.T) {
	s := NewArrayStream()
	out := s.ProcessChunk([]byte(`[}}{"a":1}]`))
	assert.Equal(t, []string{`{"a":1}`}, out)
	assert.NoError(t, s.Finish())
}

func TestArrayStream_Started(t *testing.T) {
	s := NewArrayStream()
	assert.Empty(t, s.ProcessChunk([]byte("   ")))
	assert.False(t, s.Started())
	assert.Empty(t, s.ProcessChunk([]byte("[")))
	assert.True(t, s.Started())
}

func BenchmarkArrayStream(b *testing.B) {
	obj := `{"name":"bird","language":"en","id":"42","bio":"chirp \"chirp\" {}","version":1.25}`
	input := []byte("[" + strings.Repeat(obj+",", 999) + obj + "]")
	b.SetBytes(int64(len(input)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s := NewArrayStream()
		for off := 0; off < len(input); off += 8192 {
			end := off + 8192
			if end > len(input) {
				end = len(input)
			}
			s.ProcessChunk(input[off:end])
		}
	}
}
