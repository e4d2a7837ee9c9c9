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

package resolver

import (
	"fmt"
	"net/url"
)

// Credentials is the full provider credential set. All four fields must be
// valid before any request is attempted. After a successful authentication
// handshake the Port field is overwritten with the port the provider
// reports as authoritative.
type Credentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the invariant: every field non-empty, port in range.
func (c Credentials) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("server host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("server port %d out of range 1-65535", c.Port)
	}
	if c.Username == "" {
		return fmt.Errorf("username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// baseURL returns the provider origin, e.g. http://host:port.
func (c Credentials) baseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// playerAPIURL builds a player_api.php query URL embedding the credentials.
// Caller-supplied extras never override the credential or action params.
func (c Credentials) playerAPIURL(action string, extra url.Values) *url.URL {
	u := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/player_api.php",
	}

	params := url.Values{}
	params.Set("username", c.Username)
	params.Set("password", c.Password)
	if action != "" {
		params.Set("action", action)
	}
	for k, vs := range extra {
		if k == "username" || k == "password" || k == "action" {
			continue
		}
		for _, v := range vs {
			if v == "" {
				continue
			}
			params.Add(k, v)
		}
	}
	u.RawQuery = params.Encode()

	return u
}
