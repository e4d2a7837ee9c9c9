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
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/lucasduport/stream-web/pkg/config"
)

func TestLivePlaylistExport(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "get_account_info":
			_, port, _ := net.SplitHostPort(r.Host)
			fmt.Fprintf(w, `{"user_info":{"username":"alice","status":"Active"},"server_info":{"port":%s}}`, port)
		case "get_live_categories":
			fmt.Fprint(w, `[{"category_id":"5","category_name":"News"}]`)
		case "get_live_streams":
			// stream_id arrives as a number here, as many providers send it.
			fmt.Fprint(w, `[{"name":"Channel One","stream_id":101,"category_id":"5","epg_channel_id":"one.example"},{"name":"","stream_id":102}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer provider.Close()

	providerURL, _ := url.Parse(provider.URL)
	_, router := newTestServer(t, func(conf *config.AppConfig) {
		conf.AllowedHosts = []string{providerURL.Host}
	})

	// Log in first so the playlist has a session to build URLs from.
	w := httptest.NewRecorder()
	body := fmt.Sprintf(`{"host":%q,"port":%s,"username":"alice","password":"s3cret"}`,
		providerURL.Hostname(), providerURL.Port())
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/iptv.m3u", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("playlist status = %d, body = %s", w.Code, w.Body.String())
	}
	playlist := w.Body.String()

	if !strings.HasPrefix(playlist, "#EXTM3U\n") {
		t.Errorf("playlist missing #EXTM3U header:\n%s", playlist)
	}
	if !strings.Contains(playlist, "Channel One") {
		t.Errorf("playlist missing channel name:\n%s", playlist)
	}
	if !strings.Contains(playlist, `group-title="News"`) {
		t.Errorf("playlist missing category tag:\n%s", playlist)
	}
	if !strings.Contains(playlist, `tvg-id="one.example"`) {
		t.Errorf("playlist missing EPG tag:\n%s", playlist)
	}
	// Track URIs must route through this server's relay, not the provider.
	if !strings.Contains(playlist, "http://localhost:8080/relay?url=") {
		t.Errorf("playlist URIs do not route through the relay:\n%s", playlist)
	}
	// The nameless stream is dropped, not emitted half-formed.
	if strings.Contains(playlist, "102") {
		t.Errorf("playlist contains stream that should have been skipped:\n%s", playlist)
	}
}

func TestLivePlaylistRequiresSession(t *testing.T) {
	_, router := newTestServer(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/iptv.m3u", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
