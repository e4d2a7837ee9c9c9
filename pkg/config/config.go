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

package config

import "net/url"

// CredentialString is a string holding a credential. It exists so that
// credentials get their own type and are not passed around as naked strings.
type CredentialString string

// String returns the raw credential value.
func (s CredentialString) String() string {
	return string(s)
}

// PathEscape returns the credential escaped for use in a URL path segment.
func (s CredentialString) PathEscape() string {
	return url.PathEscape(string(s))
}

// HostConfiguration holds the listening address of the server and the
// hostname advertised in generated URLs.
type HostConfiguration struct {
	Hostname string
	Port     int
}

// AppConfig represents the whole stream-web configuration, assembled once at
// startup from flags, environment and the optional config file. It is
// read-only after that point.
type AppConfig struct {
	HostConfig *HostConfiguration
	HTTPS      bool

	// RelayPath is the local path the relay gateway is mounted on.
	RelayPath string

	// AllowedHosts lists the upstream host:port pairs the relay may forward
	// to. Every entry must carry an explicit port.
	AllowedHosts []string

	// StorageDir is where the provider credential record is persisted.
	StorageDir string

	// UserAgent is sent on every upstream request.
	UserAgent string

	// ProtectRelay puts the relay endpoint itself behind the access gate.
	// Off by default since media elements cannot complete interactive auth.
	ProtectRelay bool

	// Local access gate credentials, used when LDAP is disabled.
	User     CredentialString
	Password CredentialString

	// LDAP access gate configuration.
	LDAPEnabled        bool
	LDAPServer         string
	LDAPBaseDN         string
	LDAPBindDN         string
	LDAPBindPassword   string
	LDAPUserAttribute  string
	LDAPGroupAttribute string
	LDAPRequiredGroup  string
}

// GateEnabled reports whether the access gate should be enforced at all.
func (c *AppConfig) GateEnabled() bool {
	return c.LDAPEnabled || c.User.String() != ""
}
