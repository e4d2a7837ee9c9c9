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

// Package resolver owns the single provider session: the credential
// lifecycle, the authentication handshake, and the deterministic
// construction of every API and stream URL the rest of the system consumes.
package resolver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/buger/jsonparser"
	"github.com/lucasduport/stream-web/pkg/utils"
)

// player_api action identifiers
const (
	ActionGetAccountInfo      = "get_account_info"
	ActionGetLiveCategories   = "get_live_categories"
	ActionGetLiveStreams      = "get_live_streams"
	ActionGetVodCategories    = "get_vod_categories"
	ActionGetVodStreams       = "get_vod_streams"
	ActionGetSeriesCategories = "get_series_categories"
	ActionGetSeries           = "get_series"
	ActionGetSeriesInfo       = "get_series_info"
)

// Stream type path segments, literal in provider stream URLs.
const (
	StreamTypeMovie  = "movie"
	StreamTypeSeries = "series"
	StreamTypeLive   = "live"
)

// Default container extensions per stream type. Live needs a transport
// stream for continuous playback; VOD keeps the provider's usual container.
const (
	defaultVodExtension  = "mkv"
	defaultLiveExtension = "ts"
)

// maxAPIResponseBytes bounds provider responses read into memory.
const maxAPIResponseBytes = 10 * 1024 * 1024

var knownActions = map[string]struct{}{
	ActionGetAccountInfo:      {},
	ActionGetLiveCategories:   {},
	ActionGetLiveStreams:      {},
	ActionGetVodCategories:    {},
	ActionGetVodStreams:       {},
	ActionGetSeriesCategories: {},
	ActionGetSeries:           {},
	ActionGetSeriesInfo:       {},
}

// IsKnownAction reports whether the action is one the provider API serves.
func IsKnownAction(action string) bool {
	_, ok := knownActions[action]
	return ok
}

// State is the session state.
type State int

const (
	StateLoggedOut State = iota
	StateAuthenticating
	StateLoggedIn
)

// AccountInfo is the summary extracted from a get_account_info response,
// alongside the raw payload for the UI to render.
type AccountInfo struct {
	Username string
	Status   string
	ExpDate  string
	Port     int
	Raw      []byte
}

// Resolver holds the one active session per running client. It is an
// explicit object injected by the application context, not a package
// global. Credential reads and writes are atomic from the caller's point
// of view; a persistence write is never partially applied.
type Resolver struct {
	store     *Store
	client    *http.Client
	relayPath string
	userAgent string

	mu    sync.RWMutex
	creds *Credentials
	state State
}

// New builds the resolver and restores any persisted session. The client
// must be the relay's allow-list-enforcing client so resolver traffic can
// never reach hosts the gateway would refuse.
func New(store *Store, client *http.Client, relayPath, userAgent string) *Resolver {
	if userAgent == "" {
		userAgent = utils.GetIPTVUserAgent()
	}

	r := &Resolver{
		store:     store,
		client:    client,
		relayPath: relayPath,
		userAgent: userAgent,
	}

	if creds, err := store.Load(); err == nil && creds != nil {
		r.creds = creds
		r.state = StateLoggedIn
		utils.InfoLog("Restored persisted session for user %s", utils.MaskString(creds.Username))
	}

	return r
}

// State returns the current session state.
func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// IsAuthenticated reports whether a session is active.
func (r *Resolver) IsAuthenticated() bool {
	return r.State() == StateLoggedIn
}

// Credentials returns a copy of the current credentials, or nil.
func (r *Resolver) Credentials() *Credentials {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.creds == nil {
		return nil
	}
	creds := *r.creds
	return &creds
}

// Authenticate performs the account-info handshake against the provider.
// On success the provider-reported port supersedes the submitted one and
// the full credential set is persisted. On failure the session is logged
// out and nothing is persisted; failures are classified, never retried.
// Calling while already logged in re-authenticates; the last completed
// call wins.
func (r *Resolver) Authenticate(ctx context.Context, candidate Credentials) (*AccountInfo, error) {
	if err := candidate.Validate(); err != nil {
		return nil, utils.ErrorWithLocation(err)
	}

	r.mu.Lock()
	r.state = StateAuthenticating
	r.mu.Unlock()

	u := candidate.playerAPIURL(ActionGetAccountInfo, nil)
	utils.DebugLog("Authentication handshake against %s:%d for user %s",
		candidate.Host, candidate.Port, utils.MaskString(candidate.Username))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, r.failAuth(authError(AuthUnreachable, 0, err))
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, r.failAuth(authError(AuthUnreachable, 0, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, r.failAuth(authError(AuthUnauthorized, resp.StatusCode, nil))
	case resp.StatusCode == http.StatusForbidden:
		return nil, r.failAuth(authError(AuthForbidden, resp.StatusCode, nil))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, r.failAuth(authError(AuthServerError, resp.StatusCode, nil))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return nil, r.failAuth(authError(AuthUnreachable, resp.StatusCode, err))
	}

	info, err := parseAccountInfo(body)
	if err != nil {
		utils.DebugLog("Account-info validation failed: %v", err)
		return nil, r.failAuth(authError(AuthMalformedResponse, resp.StatusCode, err))
	}

	// The provider-declared port is authoritative; fall back to the
	// submitted one when the reported value is unusable.
	updated := candidate
	if info.Port >= 1 && info.Port <= 65535 {
		updated.Port = info.Port
	}

	r.mu.Lock()
	if err := r.store.Save(updated); err != nil {
		// The provider accepted the login; a disk fault only costs
		// persistence across restarts.
		utils.ErrorLog("Failed to persist credentials: %v", err)
	}
	r.creds = &updated
	r.state = StateLoggedIn
	r.mu.Unlock()

	utils.InfoLog("Authenticated user %s against %s:%d (status %q)",
		utils.MaskString(updated.Username), updated.Host, updated.Port, info.Status)

	return info, nil
}

// failAuth transitions Authenticating -> LoggedOut without touching the
// persisted record, and passes the classified error through.
func (r *Resolver) failAuth(err *AuthError) error {
	r.mu.Lock()
	r.state = StateLoggedOut
	r.creds = nil
	r.mu.Unlock()
	return err
}

// Logout clears in-memory and persisted credentials. Idempotent.
func (r *Resolver) Logout() error {
	r.mu.Lock()
	r.creds = nil
	r.state = StateLoggedOut
	r.mu.Unlock()

	return r.store.Clear()
}

// BuildAPIURL constructs the provider query URL for the action, embedding
// the current credentials, wrapped as a relay gateway request URL for the
// browser to call. Pure; no network I/O.
func (r *Resolver) BuildAPIURL(action string, extra url.Values) (string, error) {
	creds := r.Credentials()
	if creds == nil {
		return "", ErrNotAuthenticated
	}
	return r.wrapRelay(creds.playerAPIURL(action, extra).String()), nil
}

// BuildStreamURL derives the relay-wrapped media URL for a stream. Returns
// ok=false when no credentials are present or the stream type is unknown;
// the caller must treat that as "cannot play". Same inputs with the same
// stored credentials always yield the same URL.
func (r *Resolver) BuildStreamURL(streamID, streamType, containerExtension string) (string, bool) {
	direct, ok := r.BuildDirectStreamURL(streamID, streamType, containerExtension)
	if !ok {
		return "", false
	}
	return r.wrapRelay(direct), true
}

// BuildDirectStreamURL derives the unwrapped provider stream URL, for
// deployments where playback elements talk to the provider directly.
func (r *Resolver) BuildDirectStreamURL(streamID, streamType, containerExtension string) (string, bool) {
	creds := r.Credentials()
	if creds == nil || streamID == "" {
		return "", false
	}

	switch streamType {
	case StreamTypeMovie, StreamTypeSeries:
		if containerExtension == "" {
			containerExtension = defaultVodExtension
		}
	case StreamTypeLive:
		if containerExtension == "" {
			containerExtension = defaultLiveExtension
		}
	default:
		return "", false
	}

	return fmt.Sprintf("%s/%s/%s/%s/%s.%s",
		creds.baseURL(),
		streamType,
		url.PathEscape(creds.Username),
		url.PathEscape(creds.Password),
		streamID,
		containerExtension,
	), true
}

// FetchAPI issues a catalog query server-side through the allow-list
// client and returns the raw provider JSON. Empty or junk payloads are
// replaced with a safe empty structure so screens render instead of
// erroring; real transport failures are the caller's to surface as a
// generic request failure.
func (r *Resolver) FetchAPI(ctx context.Context, action string, extra url.Values) ([]byte, int, error) {
	creds := r.Credentials()
	if creds == nil {
		return nil, http.StatusUnauthorized, ErrNotAuthenticated
	}

	u := creds.playerAPIURL(action, extra)
	utils.DebugLog("Catalog query action=%s", action)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, http.StatusInternalServerError, utils.PrintErrorAndReturn(err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, http.StatusBadGateway, utils.PrintErrorAndReturn(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return nil, http.StatusBadGateway, utils.PrintErrorAndReturn(err)
	}

	trim := bytes.TrimSpace(body)
	if len(trim) == 0 || bytes.Equal(trim, []byte("null")) || (len(trim) > 0 && trim[0] == '<') {
		return fallbackForAction(action), http.StatusOK, nil
	}

	return body, resp.StatusCode, nil
}

// wrapRelay turns an absolute provider URL into a same-origin relay URL.
// The target's own query parameters survive the percent-encoding round trip.
func (r *Resolver) wrapRelay(target string) string {
	return r.relayPath + "?url=" + url.QueryEscape(target)
}

// parseAccountInfo validates the account-info shape at the API boundary:
// a user_info object with username and status, and server_info.port.
// Anything else is a malformed response, not something to proceed with.
func parseAccountInfo(data []byte) (*AccountInfo, error) {
	_, dataType, _, err := jsonparser.Get(data, "user_info")
	if err != nil || dataType != jsonparser.Object {
		return nil, fmt.Errorf("response missing user_info object")
	}

	username, err := jsonparser.GetString(data, "user_info", "username")
	if err != nil {
		return nil, fmt.Errorf("user_info missing username")
	}
	status, err := jsonparser.GetString(data, "user_info", "status")
	if err != nil {
		return nil, fmt.Errorf("user_info missing status")
	}

	portRaw, portType, _, err := jsonparser.Get(data, "server_info", "port")
	if err != nil || (portType != jsonparser.String && portType != jsonparser.Number) {
		return nil, fmt.Errorf("response missing server_info.port")
	}
	// Providers send the port as either a bare number or a quoted string;
	// jsonparser strips the quotes, so restore them before FlexInt parses it.
	token := portRaw
	if portType == jsonparser.String {
		token = []byte(strconv.Quote(string(portRaw)))
	}
	var port FlexInt
	if err := port.UnmarshalJSON(token); err != nil {
		return nil, fmt.Errorf("server_info.port is not usable: %w", err)
	}

	// exp_date is optional and may be a string or a unix timestamp number.
	expDate := ""
	if raw, dt, _, err := jsonparser.Get(data, "user_info", "exp_date"); err == nil &&
		(dt == jsonparser.String || dt == jsonparser.Number) {
		expDate = string(raw)
	}

	return &AccountInfo{
		Username: username,
		Status:   status,
		ExpDate:  expDate,
		Port:     port.Int(),
		Raw:      data,
	}, nil
}

// fallbackForAction returns a reasonable empty structure per action so
// empty or invalid provider payloads do not turn into client errors.
func fallbackForAction(action string) []byte {
	switch action {
	case ActionGetLiveCategories, ActionGetVodCategories, ActionGetSeriesCategories,
		ActionGetLiveStreams, ActionGetVodStreams, ActionGetSeries:
		return []byte("[]")
	default:
		return []byte("{}")
	}
}
