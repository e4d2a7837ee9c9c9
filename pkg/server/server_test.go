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
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lucasduport/stream-web/pkg/config"
)

func newTestServer(t *testing.T, mutate func(*config.AppConfig)) (*Config, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conf := &config.AppConfig{
		HostConfig:   &config.HostConfiguration{Hostname: "localhost", Port: 8080},
		RelayPath:    "/relay",
		AllowedHosts: []string{"iptv.example.com:8080"},
		StorageDir:   t.TempDir(),
	}
	if mutate != nil {
		mutate(conf)
	}

	c, err := NewServer(conf)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	router := gin.New()
	c.routes(router)
	return c, router
}

func TestGateRejectsWithoutCredentials(t *testing.T) {
	_, router := newTestServer(t, func(conf *config.AppConfig) {
		conf.User = "admin"
		conf.Password = "hunter2"
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if got := w.Header().Get("WWW-Authenticate"); !strings.Contains(got, "Basic") {
		t.Errorf("WWW-Authenticate = %q, want Basic challenge", got)
	}
}

func TestGateAcceptsBasicAuth(t *testing.T) {
	_, router := newTestServer(t, func(conf *config.AppConfig) {
		conf.User = "admin"
		conf.Password = "hunter2"
	})

	tests := []struct {
		name     string
		user     string
		password string
		want     int
	}{
		{name: "valid credentials", user: "admin", password: "hunter2", want: http.StatusOK},
		{name: "wrong password", user: "admin", password: "wrong", want: http.StatusUnauthorized},
		{name: "wrong user", user: "other", password: "hunter2", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
			req.SetBasicAuth(tt.user, tt.password)
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestGateAcceptsQueryCredentials(t *testing.T) {
	_, router := newTestServer(t, func(conf *config.AppConfig) {
		conf.User = "admin"
		conf.Password = "hunter2"
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/session?gate_user=admin&gate_pass=hunter2", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestGateDisabledByDefault(t *testing.T) {
	_, router := newTestServer(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if !resp.Success {
		t.Errorf("Success = false, body = %s", w.Body.String())
	}
}

func TestRelayNotGatedByDefault(t *testing.T) {
	// The relay stays open even when the API gate is on, unless explicitly
	// protected; media elements cannot answer a Basic auth challenge.
	_, router := newTestServer(t, func(conf *config.AppConfig) {
		conf.User = "admin"
		conf.Password = "hunter2"
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/relay", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d (missing url param, not auth challenge)", w.Code, http.StatusBadRequest)
	}
}

func TestRelayGatedWhenProtected(t *testing.T) {
	_, router := newTestServer(t, func(conf *config.AppConfig) {
		conf.User = "admin"
		conf.Password = "hunter2"
		conf.ProtectRelay = true
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/relay", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestLoginRequiresAllFields(t *testing.T) {
	_, router := newTestServer(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"host":"iptv.example.com","port":8080}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestLoginFlowAgainstProvider(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("password") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, port, _ := net.SplitHostPort(r.Host)
		fmt.Fprintf(w, `{"user_info":{"username":"alice","status":"Active"},"server_info":{"port":%s}}`, port)
	}))
	defer provider.Close()

	providerURL, _ := url.Parse(provider.URL)
	_, router := newTestServer(t, func(conf *config.AppConfig) {
		conf.AllowedHosts = []string{providerURL.Host}
	})

	login := func(password string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		body := fmt.Sprintf(`{"host":%q,"port":%s,"username":"alice","password":%q}`,
			providerURL.Hostname(), providerURL.Port(), password)
		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	// Wrong provider password surfaces as 401 with the classified message.
	if w := login("wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	w := login("s3cret")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}

	// Session now reports authenticated with a masked username.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	var resp struct {
		Data struct {
			Authenticated bool   `json:"authenticated"`
			Username      string `json:"username"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("session response not JSON: %v", err)
	}
	if !resp.Data.Authenticated {
		t.Errorf("authenticated = false after login, body = %s", w.Body.String())
	}
	if resp.Data.Username == "alice" {
		t.Error("session leaked the unmasked username")
	}

	// Stream URLs resolve through the relay.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stream-url?id=42&type=movie", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("stream-url status = %d, body = %s", w.Code, w.Body.String())
	}
	var streamResp struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &streamResp); err != nil {
		t.Fatalf("stream-url response not JSON: %v", err)
	}
	if !strings.HasPrefix(streamResp.Data.URL, "/relay?url=") {
		t.Errorf("stream url = %q, want relay-wrapped", streamResp.Data.URL)
	}
	if !strings.Contains(streamResp.Data.URL, "42.mkv") {
		t.Errorf("stream url = %q, want movie container default", streamResp.Data.URL)
	}

	// Logout drops the session; stream URLs stop resolving.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/logout", nil))
	if w.Code != http.StatusOK {
		t.Errorf("logout status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stream-url?id=42", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("stream-url after logout status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestCatalogRejectsUnknownAction(t *testing.T) {
	_, router := newTestServer(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/catalog?action=drop_tables", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCatalogRequiresSession(t *testing.T) {
	_, router := newTestServer(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/catalog?action=get_vod_streams", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
