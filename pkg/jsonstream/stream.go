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

// Package jsonstream splits a JSON array of objects into the raw text of each
// top-level object while the bytes are still arriving.
//
// The splitter only balances braces and tracks string literals. It does not
// validate JSON; a well-formed array is assumed and each emitted text is handed
// to a real decoder afterwards.
package jsonstream

import (
	"bytes"

	"github.com/pingcap/errors"
)

// ErrTruncated is returned by Finish when the input ended inside an object.
var ErrTruncated = errors.New("jsonstream: input ended inside an object")

// ArrayStream is the incremental splitter for one logical stream. It is not
// safe for concurrent use and must not be reused for a second stream.
type ArrayStream struct {
	depth      int
	buf        bytes.Buffer
	inString   bool
	escapeNext bool
	started    bool
}

// NewArrayStream returns a splitter positioned before the opening bracket.
func NewArrayStream() *ArrayStream {
	return &ArrayStream{}
}

// ProcessChunk consumes the next piece of the stream and returns every object
// completed by it, in the order their closing braces appear.
//
// Chunks may split objects, strings, escape sequences and multi-byte UTF-8
// characters anywhere. Structural characters are all ASCII, so the splitter
// works on bytes and never looks inside a multi-byte sequence.
func (s *ArrayStream) ProcessChunk(chunk []byte) []string {
	var objects []string

	for _, c := range chunk {
		if !s.started && !s.inString && s.depth == 0 && isSpace(c) {
			continue
		}
		if !s.started && c == '[' {
			s.started = true
			continue
		}

		switch {
		case s.escapeNext:
			s.escapeNext = false
			s.push(c)
		case c == '{' && !s.inString:
			s.depth++
			s.buf.WriteByte(c)
		case c == '}' && !s.inString:
			// unbalanced close at the top level, depth never goes negative
			if s.depth == 0 {
				continue
			}
			s.depth--
			s.buf.WriteByte(c)
			if s.depth == 0 {
				objects = append(objects, s.buf.String())
				s.buf.Reset()
			}
		case c == '"':
			s.inString = !s.inString
			s.push(c)
		case c == '\\' && s.inString:
			s.escapeNext = true
			s.push(c)
		default:
			s.push(c)
		}
	}

	return objects
}

// push appends c to the object in progress. Bytes between top-level objects
// (separators, whitespace, the closing bracket) are dropped.
func (s *ArrayStream) push(c byte) {
	if s.depth > 0 {
		s.buf.WriteByte(c)
	}
}

// Buffered reports how many bytes of the current object are held.
func (s *ArrayStream) Buffered() int {
	return s.buf.Len()
}

// Pending reports whether an object has been opened but not yet closed.
func (s *ArrayStream) Pending() bool {
	return s.depth > 0
}

// Started reports whether the opening bracket has been seen.
func (s *ArrayStream) Started() bool {
	return s.started
}

// Finish marks the end of the input. The partial object, if any, is discarded
// and ErrTruncated is returned so the caller can choose to surface it.
func (s *ArrayStream) Finish() error {
	pending := s.Pending()
	s.buf.Reset()
	s.depth = 0
	s.inString = false
	s.escapeNext = false
	if pending {
		return ErrTruncated
	}
	return nil
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
