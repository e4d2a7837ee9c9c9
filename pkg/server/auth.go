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

package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-ldap/ldap/v3"
	"github.com/lucasduport/stream-web/pkg/utils"
)

// authenticate is the optional access gate in front of the API surface and
// the playlist export. Credentials arrive via HTTP Basic auth (browser
// friendly) or, for tooling, via gate_user/gate_pass query parameters; the
// request body is never consumed so the login payload stays intact.
func (c *Config) authenticate(ctx *gin.Context) {
	username, password, ok := ctx.Request.BasicAuth()
	if !ok {
		username = ctx.Query("gate_user")
		password = ctx.Query("gate_pass")
	}

	if username == "" {
		ctx.Header("WWW-Authenticate", `Basic realm="stream-web"`)
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	if c.LDAPEnabled {
		ok := ldapAuthenticate(
			c.LDAPServer,
			c.LDAPBaseDN,
			c.LDAPBindDN,
			c.LDAPBindPassword,
			c.LDAPUserAttribute,
			c.LDAPGroupAttribute,
			c.LDAPRequiredGroup,
			username,
			password,
		)
		if !ok {
			utils.DebugLog("LDAP authentication failed for user: %s", username)
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		utils.DebugLog("LDAP authentication succeeded for user: %s", username)
		ctx.Set("gate_username", username)
		return
	}

	if c.User.String() != username || c.Password.String() != password {
		utils.DebugLog("Local authentication failed for user: %s", username)
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	ctx.Set("gate_username", username)
}

// ldapAuthenticate binds with an optional service account, finds the user
// DN, optionally validates group membership, then attempts a user bind.
func ldapAuthenticate(server, baseDN, bindDN, bindPassword, userAttr, groupAttr, requiredGroup, username, password string) bool {
	l, err := ldap.DialURL(server)
	if err != nil {
		utils.DebugLog("LDAP DialURL error: %v", err)
		return false
	}
	defer l.Close()

	// Bind with service account
	if bindDN != "" && bindPassword != "" {
		if err := l.Bind(bindDN, bindPassword); err != nil {
			utils.DebugLog("LDAP service bind error: %v", err)
			return false
		}
	}

	// Search for user DN
	filter := fmt.Sprintf("(%s=%s)", userAttr, ldap.EscapeFilter(username))
	searchRequest := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		filter,
		[]string{"dn", groupAttr},
		nil,
	)
	sr, err := l.Search(searchRequest)
	if err != nil {
		utils.DebugLog("LDAP search error: %v", err)
		return false
	}
	if len(sr.Entries) == 0 {
		utils.DebugLog("LDAP search: no entries found for user: %s", username)
		return false
	}
	userDN := sr.Entries[0].DN

	// Check group membership if requiredGroup is specified
	if requiredGroup != "" && groupAttr != "" {
		hasGroup := false
		for _, entry := range sr.Entries {
			for _, groupValue := range entry.GetAttributeValues(groupAttr) {
				if strings.Contains(strings.ToLower(groupValue), strings.ToLower(requiredGroup)) {
					hasGroup = true
					break
				}
			}
		}
		if !hasGroup {
			utils.DebugLog("LDAP user %s is not a member of required group: %s", username, requiredGroup)
			return false
		}
	}

	// Try to bind as user
	if err := l.Bind(userDN, password); err != nil {
		utils.DebugLog("LDAP user bind error: %v", err)
		return false
	}
	return true
}
