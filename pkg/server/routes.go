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
	"github.com/gin-gonic/gin"
	"github.com/lucasduport/stream-web/pkg/utils"
)

func (c *Config) routes(router *gin.Engine) {
	// Relay gateway: any method, optionally gated. Media elements issue
	// their own requests here, so gating is opt-in.
	relayHandlers := []gin.HandlerFunc{}
	if c.ProtectRelay && c.GateEnabled() {
		relayHandlers = append(relayHandlers, c.authenticate)
	}
	relayHandlers = append(relayHandlers, c.relay.Handle)
	router.Any(c.RelayPath, relayHandlers...)

	// UI-facing API surface
	api := router.Group("/api")
	if c.GateEnabled() {
		api.Use(c.authenticate)
	}
	api.POST("/login", c.apiLogin)
	api.POST("/logout", c.apiLogout)
	api.GET("/session", c.apiSession)
	api.GET("/catalog", c.apiCatalog)
	api.GET("/stream-url", c.apiStreamURL)

	// Live channel playlist for external players
	if c.GateEnabled() {
		router.GET("/iptv.m3u", c.authenticate, c.getLivePlaylist)
	} else {
		router.GET("/iptv.m3u", c.getLivePlaylist)
	}

	utils.InfoLog("Routes initialized, relay mounted at %s", c.RelayPath)
}
