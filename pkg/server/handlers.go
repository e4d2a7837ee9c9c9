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
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/lucasduport/stream-web/pkg/resolver"
	"github.com/lucasduport/stream-web/pkg/utils"
)

// APIResponse is a standardized API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// loginRequest carries the provider credentials submitted by the login
// screen, as form fields or JSON.
type loginRequest struct {
	Host     string `form:"host" json:"host" binding:"required"`
	Port     int    `form:"port" json:"port" binding:"required"`
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// apiLogin runs the authentication handshake and reports the classified
// outcome. The raw account-info payload goes back to the UI on success.
func (c *Config) apiLogin(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.Bind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "host, port, username and password are required"})
		return
	}

	info, err := c.resolver.Authenticate(ctx.Request.Context(), resolver.Credentials{
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		ctx.JSON(authStatus(err), APIResponse{Success: false, Error: err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, APIResponse{Success: true, Data: json.RawMessage(info.Raw)})
}

// authStatus maps the classified authentication failure to an HTTP status.
func authStatus(err error) int {
	var authErr *resolver.AuthError
	if !errors.As(err, &authErr) {
		return http.StatusBadRequest
	}
	switch authErr.Reason {
	case resolver.AuthUnauthorized:
		return http.StatusUnauthorized
	case resolver.AuthForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

// apiLogout clears the session. Safe to call when already logged out.
func (c *Config) apiLogout(ctx *gin.Context) {
	if err := c.resolver.Logout(); err != nil {
		ctx.JSON(http.StatusInternalServerError, APIResponse{Success: false, Error: "logout failed"})
		return
	}
	ctx.JSON(http.StatusOK, APIResponse{Success: true, Message: "logged out"})
}

// apiSession exposes the only session state the UI needs: present/absent
// plus a masked identity.
func (c *Config) apiSession(ctx *gin.Context) {
	creds := c.resolver.Credentials()
	if creds == nil || !c.resolver.IsAuthenticated() {
		ctx.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{"authenticated": false}})
		return
	}
	ctx.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{
		"authenticated": true,
		"username":      utils.MaskString(creds.Username),
		"host":          creds.Host,
		"port":          creds.Port,
	}})
}

// apiCatalog forwards a catalog query to the provider and returns the raw
// JSON. Failures surface as a generic request-failed state; the resolver
// does not retry.
func (c *Config) apiCatalog(ctx *gin.Context) {
	action := ctx.Query("action")
	if !resolver.IsKnownAction(action) {
		ctx.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "unknown action"})
		return
	}

	extra := url.Values{}
	for _, key := range []string{"category_id", "series_id", "search"} {
		if v := ctx.Query(key); v != "" {
			extra.Set(key, v)
		}
	}

	body, status, err := c.resolver.FetchAPI(ctx.Request.Context(), action, extra)
	if err != nil {
		if errors.Is(err, resolver.ErrNotAuthenticated) {
			ctx.JSON(http.StatusUnauthorized, APIResponse{Success: false, Error: resolver.ErrNotAuthenticated.Error()})
			return
		}
		ctx.JSON(http.StatusBadGateway, APIResponse{Success: false, Error: "request failed"})
		return
	}

	ctx.Data(status, "application/json", body)
}

// apiStreamURL hands the UI a relay-wrapped media URL for a playback
// element; the element issues its own requests from there.
func (c *Config) apiStreamURL(ctx *gin.Context) {
	if !c.resolver.IsAuthenticated() {
		ctx.JSON(http.StatusUnauthorized, APIResponse{Success: false, Error: resolver.ErrNotAuthenticated.Error()})
		return
	}

	streamURL, ok := c.resolver.BuildStreamURL(
		ctx.Query("id"),
		ctx.DefaultQuery("type", resolver.StreamTypeMovie),
		ctx.Query("ext"),
	)
	if !ok {
		ctx.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "invalid stream id or type"})
		return
	}

	ctx.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{"url": streamURL}})
}
