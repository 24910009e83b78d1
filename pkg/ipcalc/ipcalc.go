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

// Package ipcalc implements the byte-wise address arithmetic behind the
// /2 routes.
package ipcalc

import (
	"net/netip"

	"github.com/pingcap/errors"
)

var (
	ErrNotIPv4 = errors.New("not an IPv4 address")
	ErrNotIPv6 = errors.New("not an IPv6 address")
)

// ParseV4 accepts dotted-quad IPv4 only.
func ParseV4(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, err
	}
	if !addr.Is4() {
		return netip.Addr{}, errors.Annotate(ErrNotIPv4, s)
	}
	return addr, nil
}

// ParseV6 accepts IPv6 text, including IPv4-mapped forms, without a zone.
func ParseV6(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, err
	}
	if !addr.Is6() || addr.Zone() != "" {
		return netip.Addr{}, errors.Annotate(ErrNotIPv6, s)
	}
	return addr, nil
}

// DestV4 adds key to from octet by octet, wrapping on overflow.
func DestV4(from, key netip.Addr) netip.Addr {
	a, b := from.As4(), key.As4()
	var out [4]byte
	for i := range out {
		out[i] = a[i] + b[i]
	}
	return netip.AddrFrom4(out)
}

// KeyV4 recovers the key that DestV4 would need to turn from into to.
func KeyV4(from, to netip.Addr) netip.Addr {
	a, b := from.As4(), to.As4()
	var out [4]byte
	for i := range out {
		out[i] = b[i] - a[i]
	}
	return netip.AddrFrom4(out)
}

// DestV6 xors from with key.
func DestV6(from, key netip.Addr) netip.Addr {
	return xor16(from, key)
}

// KeyV6 xors from with to. XOR is its own inverse, so this is DestV6 again.
func KeyV6(from, to netip.Addr) netip.Addr {
	return xor16(from, to)
}

func xor16(x, y netip.Addr) netip.Addr {
	a, b := x.As16(), y.As16()
	var out [16]byte
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return netip.AddrFrom16(out)
}
