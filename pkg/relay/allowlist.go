/*
 * stream-web is a browser-based client for Xtream-Codes IPTV services.
 * Copyright (C) 2025  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package relay

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// AllowList is the set of upstream host:port pairs the gateway may forward
// to. It is built once at startup and read-only afterwards.
//
// Matching is an exact, case-sensitive string comparison of the target URL's
// hostname and port against an entry. Ports are never inferred: an entry for
// port 80 does not match a URL without an explicit port, and target URLs
// lacking an explicit port are rejected outright.
type AllowList map[string]struct{}

// ParseAllowList validates and indexes the configured host:port entries.
// Every entry must carry an explicit numeric port in range.
func ParseAllowList(entries []string) (AllowList, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("allow-list is empty")
	}

	list := make(AllowList, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		host, port, err := net.SplitHostPort(entry)
		if err != nil {
			return nil, fmt.Errorf("allow-list entry %q: expected host:port: %w", entry, err)
		}
		if host == "" {
			return nil, fmt.Errorf("allow-list entry %q: empty host", entry)
		}
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("allow-list entry %q: invalid port %q", entry, port)
		}
		list[host+":"+port] = struct{}{}
	}

	return list, nil
}

// Allows reports whether the exact host:port pair is in the list.
func (a AllowList) Allows(hostPort string) bool {
	_, ok := a[hostPort]
	return ok
}

// AllowsURL reports whether the URL's hostname:port pair is in the list.
// URLs without an explicit port are ambiguous and always refused.
func (a AllowList) AllowsURL(u *url.URL) bool {
	port := u.Port()
	if port == "" {
		return false
	}
	return a.Allows(u.Hostname() + ":" + port)
}

// Entries returns the configured pairs, for startup logging.
func (a AllowList) Entries() []string {
	entries := make([]string, 0, len(a))
	for entry := range a {
		entries = append(entries, entry)
	}
	return entries
}
