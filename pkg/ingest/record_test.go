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

package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecord(t *testing.T) {
	rec, err := DecodeRecord(`{"name":"y","language":"en","id":"1","bio":"b","version":1.0,"extra":true}`)
	require.NoError(t, err)
	assert.Equal(t, Record{Name: "y", Language: "en", ID: "1", Bio: "b", Version: 1}, rec)

	rec, err = DecodeRecord(`{"version":0.25,"bio":"","id":"x","language":"fr","name":""}`)
	require.NoError(t, err)
	assert.Equal(t, 0.25, rec.Version)
}

func TestDecodeRecord_Errors(t *testing.T) {
	cases := map[string]string{
		"missing fields":  `{"name":"x"}`,
		"missing version": `{"name":"y","language":"en","id":"1","bio":"b"}`,
		"wrong type":      `{"name":"y","language":"en","id":1,"bio":"b","version":1}`,
		"string version":  `{"name":"y","language":"en","id":"1","bio":"b","version":"1"}`,
		"null field":      `{"name":null,"language":"en","id":"1","bio":"b","version":1}`,
		"not json":        `{name}`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRecord(text)
			assert.Error(t, err)
		})
	}
}
