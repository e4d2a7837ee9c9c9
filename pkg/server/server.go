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
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lucasduport/stream-web/pkg/config"
	"github.com/lucasduport/stream-web/pkg/relay"
	"github.com/lucasduport/stream-web/pkg/resolver"
	"github.com/lucasduport/stream-web/pkg/utils"
)

// resolverTimeout bounds every resolver-issued provider call so a hung
// provider cannot block a login or catalog screen indefinitely.
const resolverTimeout = 10 * time.Second

// Config represent the server configuration
type Config struct {
	*config.AppConfig

	relay    *relay.Handler
	resolver *resolver.Resolver
}

// NewServer wires the relay gateway and the session resolver. The resolver
// gets the relay's allow-list client so its provider traffic obeys the same
// host restrictions as browser traffic.
func NewServer(conf *config.AppConfig) (*Config, error) {
	relayHandler, err := relay.New(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize relay gateway: %w", err)
	}

	store, err := resolver.NewStore(conf.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	res := resolver.New(store, relayHandler.Client(resolverTimeout), conf.RelayPath, conf.UserAgent)

	if conf.GateEnabled() {
		if conf.LDAPEnabled {
			utils.InfoLog("Access gate enabled (LDAP: %s)", conf.LDAPServer)
		} else {
			utils.InfoLog("Access gate enabled (local credentials)")
		}
	}

	return &Config{
		AppConfig: conf,
		relay:     relayHandler,
		resolver:  res,
	}, nil
}

// Serve runs the stream-web HTTP server until it fails.
func (c *Config) Serve() error {
	utils.InfoLog("[stream-web] Server is starting...")

	router := gin.Default()
	router.Use(cors.Default())

	c.routes(router)

	utils.InfoLog("[stream-web] Server is ready and listening on :%d", c.HostConfig.Port)
	return router.Run(fmt.Sprintf(":%d", c.HostConfig.Port))
}

// baseURL is the advertised origin used when generated URLs must be
// absolute (playlist export consumed by external players).
func (c *Config) baseURL() string {
	protocol := "http"
	if c.HTTPS {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s:%d", protocol, c.HostConfig.Hostname, c.HostConfig.Port)
}
