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

// Package manifest converts a package manifest from TOML to JSON.
package manifest

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"
	"github.com/pingcap/errors"
)

var ErrInvalidUTF8 = errors.New("invalid utf-8 sequence")

type Gifts struct {
	Package Package `json:"package"`
}

type Package struct {
	Name     string    `json:"name"`
	Authors  []string  `json:"authors"`
	Keywords []string  `json:"keywords"`
	Metadata *Metadata `json:"metadata"`
}

type Metadata struct {
	Orders []Order `json:"orders"`
}

type Order struct {
	Item     string `json:"item"`
	Quantity uint32 `json:"quantity"`
}

// raw mirrors Gifts with pointers so absent keys can be told apart from
// zero values.
type raw struct {
	Package *struct {
		Name     *string   `toml:"name"`
		Authors  *[]string `toml:"authors"`
		Keywords *[]string `toml:"keywords"`
		Metadata *struct {
			Orders *[]struct {
				Item     *string `toml:"item"`
				Quantity *uint32 `toml:"quantity"`
			} `toml:"orders"`
		} `toml:"metadata"`
	} `toml:"package"`
}

// Parse decodes a TOML manifest. The package name, authors and keywords are
// required; metadata is optional but, when present, every order needs both an
// item and a non-negative quantity.
func Parse(body []byte) (*Gifts, error) {
	if !utf8.Valid(body) {
		return nil, errors.Annotatef(ErrInvalidUTF8, "from index %d", firstInvalid(body))
	}

	var r raw
	if err := toml.Unmarshal(body, &r); err != nil {
		return nil, err
	}

	p := r.Package
	switch {
	case p == nil:
		return nil, missing("package")
	case p.Name == nil:
		return nil, missing("name")
	case p.Authors == nil:
		return nil, missing("authors")
	case p.Keywords == nil:
		return nil, missing("keywords")
	}

	g := &Gifts{Package: Package{
		Name:     *p.Name,
		Authors:  nonNil(*p.Authors),
		Keywords: nonNil(*p.Keywords),
	}}

	if p.Metadata != nil {
		if p.Metadata.Orders == nil {
			return nil, missing("orders")
		}
		md := &Metadata{Orders: make([]Order, 0, len(*p.Metadata.Orders))}
		for i, o := range *p.Metadata.Orders {
			if o.Item == nil {
				return nil, fmt.Errorf("orders[%d]: missing field `item`", i)
			}
			if o.Quantity == nil {
				return nil, fmt.Errorf("orders[%d]: missing field `quantity`", i)
			}
			md.Orders = append(md.Orders, Order{Item: *o.Item, Quantity: *o.Quantity})
		}
		g.Package.Metadata = md
	}
	return g, nil
}

// Convert parses body and renders it as JSON.
func Convert(body []byte) ([]byte, error) {
	g, err := Parse(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(g)
}

func missing(field string) error {
	return fmt.Errorf("missing field `%s`", field)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func firstInvalid(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(b)
}
