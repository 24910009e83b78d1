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
	"encoding/json"
	"fmt"
)

// Record is one element of the ingested array.
type Record struct {
	Name     string  `json:"name"`
	Language string  `json:"language"`
	ID       string  `json:"id"`
	Bio      string  `json:"bio"`
	Version  float64 `json:"version"`
}

type rawRecord struct {
	Name     *string  `json:"name"`
	Language *string  `json:"language"`
	ID       *string  `json:"id"`
	Bio      *string  `json:"bio"`
	Version  *float64 `json:"version"`
}

// DecodeRecord parses a single object text. Every field is required; unknown
// fields are ignored.
func DecodeRecord(text string) (Record, error) {
	var raw rawRecord
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Record{}, err
	}

	switch {
	case raw.Name == nil:
		return Record{}, missingField("name")
	case raw.Language == nil:
		return Record{}, missingField("language")
	case raw.ID == nil:
		return Record{}, missingField("id")
	case raw.Bio == nil:
		return Record{}, missingField("bio")
	case raw.Version == nil:
		return Record{}, missingField("version")
	}

	return Record{
		Name:     *raw.Name,
		Language: *raw.Language,
		ID:       *raw.ID,
		Bio:      *raw.Bio,
		Version:  *raw.Version,
	}, nil
}

func missingField(name string) error {
	return fmt.Errorf("missing field `%s`", name)
}
