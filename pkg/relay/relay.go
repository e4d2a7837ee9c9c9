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

// Package relay implements the same-origin gateway between the browser
// client and the upstream IPTV provider. Each request carries the target as
// a percent-encoded "url" query parameter; the gateway enforces the host
// allow-list before any network I/O, then forwards method, headers and body
// and streams the upstream response back without altering a byte.
package relay

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lucasduport/stream-web/pkg/config"
	"github.com/lucasduport/stream-web/pkg/utils"
)

// ErrHostNotAllowed is returned by the in-process client when a target's
// hostname:port pair is not on the allow-list.
var ErrHostNotAllowed = errors.New("relay: host not allowed")

// Handler is the relay gateway. Stateless across invocations: the only
// shared data is the immutable allow-list and the HTTP transport.
type Handler struct {
	allowList AllowList
	userAgent string
	transport *http.Transport
	client    *http.Client
}

// New builds the gateway from the static configuration. Fails when the
// allow-list is empty or malformed so a bad deploy never serves requests.
func New(conf *config.AppConfig) (*Handler, error) {
	allowList, err := ParseAllowList(conf.AllowedHosts)
	if err != nil {
		return nil, utils.PrintErrorAndReturn(err)
	}

	userAgent := conf.UserAgent
	if userAgent == "" {
		userAgent = utils.GetIPTVUserAgent()
	}

	// Response header timeout bounds a hung provider; no overall timeout so
	// media streams can run as long as the client stays connected.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     false,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	utils.InfoLog("Relay gateway allow-list: %v", allowList.Entries())

	return &Handler{
		allowList: allowList,
		userAgent: userAgent,
		transport: transport,
		client:    &http.Client{Transport: transport},
	}, nil
}

// Client returns an HTTP client for in-process callers (the session
// resolver) that applies the same allow-list pre-flight check the gateway
// applies to browser traffic, so no code path can bypass it.
func (h *Handler) Client(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &allowListTransport{allowList: h.allowList, base: h.transport},
	}
}

type allowListTransport struct {
	allowList AllowList
	base      http.RoundTripper
}

func (t *allowListTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.allowList.AllowsURL(req.URL) {
		return nil, ErrHostNotAllowed
	}
	return t.base.RoundTrip(req)
}

// Handle serves one relay request. Precondition checks run strictly before
// any outbound call: url present, url parseable, host:port allow-listed.
func (h *Handler) Handle(ctx *gin.Context) {
	reqID := uuid.New().String()

	rawURL := ctx.Query("url")
	if rawURL == "" {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": `Missing "url" query param`,
		})
		return
	}

	target, err := url.Parse(rawURL)
	if err != nil || !target.IsAbs() || target.Hostname() == "" {
		utils.DebugLog("[%s] Rejected malformed target: %q", reqID, rawURL)
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "Invalid URL format",
		})
		return
	}

	if !h.allowList.AllowsURL(target) {
		utils.DebugLog("[%s] Host not allowed: %s:%s", reqID, target.Hostname(), target.Port())
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": gin.H{"code": "403", "message": "Forbidden: Host not allowed"},
		})
		return
	}

	h.forward(ctx, target, reqID)
}

// forward issues the upstream request and mirrors the response verbatim.
func (h *Handler) forward(ctx *gin.Context, target *url.URL, reqID string) {
	method := ctx.Request.Method

	// The body is forwarded as an opaque stream for non-GET/HEAD methods;
	// it is never parsed or re-encoded.
	var body io.Reader
	if method != http.MethodGet && method != http.MethodHead {
		body = ctx.Request.Body
	}

	req, err := http.NewRequestWithContext(ctx.Request.Context(), method, target.String(), body)
	if err != nil {
		h.abortProxyFailed(ctx, reqID, err)
		return
	}
	if body != nil {
		req.ContentLength = ctx.Request.ContentLength
	}

	// Copy inbound headers. Host must never leak through to the upstream:
	// the outbound request carries the target's own host.
	for key, values := range ctx.Request.Header {
		if http.CanonicalHeaderKey(key) == "Host" {
			continue
		}
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("User-Agent", h.userAgent)
	// Identity encoding keeps the copied body byte-identical to what the
	// provider sent; media payloads must survive untouched.
	req.Header.Set("Accept-Encoding", "identity")

	utils.DebugLog("[%s] %s %s", reqID, method, utils.MaskURL(target.String()))

	resp, err := h.client.Do(req)
	if err != nil {
		h.abortProxyFailed(ctx, reqID, err)
		return
	}
	defer resp.Body.Close()

	// Status and every upstream header are mirrored verbatim; content-type,
	// content-length and range headers matter for media playback.
	header := ctx.Writer.Header()
	for key, values := range resp.Header {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	ctx.Status(resp.StatusCode)

	h.copyBody(ctx, resp.Body, reqID)
}

// copyBody streams the upstream body to the client incrementally, flushing
// as data arrives so playback can start before the upstream finishes.
func (h *Handler) copyBody(ctx *gin.Context, upstream io.Reader, reqID string) {
	w := ctx.Writer
	buf := make([]byte, 64*1024)

	for {
		select {
		case <-ctx.Request.Context().Done():
			utils.DebugLog("[%s] Client cancelled relay stream", reqID)
			return
		default:
		}

		n, rerr := upstream.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				utils.DebugLog("[%s] Client write error: %v", reqID, werr)
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				utils.DebugLog("[%s] Upstream read error: %v", reqID, rerr)
			}
			return
		}
	}
}

// abortProxyFailed is the only case where the gateway synthesizes a body
// instead of forwarding one: the upstream could not be reached at all.
func (h *Handler) abortProxyFailed(ctx *gin.Context, reqID string, err error) {
	utils.ErrorLog("[%s] Relay forwarding failed: %v", reqID, err)
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    "500",
			"message": "Proxy failed",
			"details": err.Error(),
		},
	})
}
