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
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/jamesnetherton/m3u"
	"github.com/lucasduport/stream-web/pkg/resolver"
	"github.com/lucasduport/stream-web/pkg/utils"
	uuid "github.com/satori/go.uuid"
)

// getLivePlaylist exports the live channel list as an M3U file whose URIs
// point back at this server, so external players stream through the relay.
func (c *Config) getLivePlaylist(ctx *gin.Context) {
	playlist, err := c.generateLivePlaylist(ctx)
	if err != nil {
		if err == resolver.ErrNotAuthenticated {
			ctx.AbortWithError(http.StatusUnauthorized, err) // nolint: errcheck
			return
		}
		ctx.AbortWithError(http.StatusBadGateway, utils.PrintErrorAndReturn(err)) // nolint: errcheck
		return
	}

	path := filepath.Join(os.TempDir(), uuid.NewV4().String()+".stream-web.m3u")
	f, err := os.Create(path)
	if err != nil {
		ctx.AbortWithError(http.StatusInternalServerError, utils.PrintErrorAndReturn(err)) // nolint: errcheck
		return
	}
	defer os.Remove(path)

	if err := marshallInto(f, playlist); err != nil {
		f.Close()
		ctx.AbortWithError(http.StatusInternalServerError, utils.PrintErrorAndReturn(err)) // nolint: errcheck
		return
	}
	f.Close()

	ctx.Header("Content-Disposition", `attachment; filename="iptv.m3u"`)
	ctx.Header("Content-Type", "application/octet-stream")
	ctx.File(path)
}

// generateLivePlaylist constructs an M3U playlist by calling the live
// categories and streams endpoints and rewriting URIs to this server.
func (c *Config) generateLivePlaylist(ctx *gin.Context) (*m3u.Playlist, error) {
	utils.DebugLog("========== GENERATING LIVE PLAYLIST ==========")

	categories := map[string]string{}
	catBody, _, err := c.resolver.FetchAPI(ctx.Request.Context(), resolver.ActionGetLiveCategories, nil)
	if err != nil {
		return nil, err
	}
	var catData []map[string]interface{}
	if err := json.Unmarshal(catBody, &catData); err != nil {
		utils.DebugLog("Unexpected format for live categories: %v", err)
	} else {
		for _, categoryMap := range catData {
			categoryID := fmt.Sprintf("%v", categoryMap["category_id"])
			categories[categoryID] = fmt.Sprintf("%v", categoryMap["category_name"])
		}
	}
	utils.DebugLog("Found %d live categories", len(categories))

	liveBody, _, err := c.resolver.FetchAPI(ctx.Request.Context(), resolver.ActionGetLiveStreams, nil)
	if err != nil {
		return nil, err
	}
	var liveData []map[string]interface{}
	if err := json.Unmarshal(liveBody, &liveData); err != nil {
		return nil, utils.PrintErrorAndReturn(fmt.Errorf("unexpected format for live streams: %w", err))
	}
	utils.DebugLog("Found %d live streams", len(liveData))

	var playlist = new(m3u.Playlist)
	playlist.Tracks = make([]m3u.Track, 0, len(liveData))

	for i, streamMap := range liveData {
		streamName, _ := streamMap["name"].(string)
		streamID := flexString(streamMap["stream_id"])
		if streamName == "" || streamID == "" {
			utils.DebugLog("WARNING: Stream #%d missing required fields - Name: %v, ID: %v", i, streamMap["name"], streamMap["stream_id"])
			continue
		}

		relative, ok := c.resolver.BuildStreamURL(streamID, resolver.StreamTypeLive, "")
		if !ok {
			continue
		}

		track := m3u.Track{
			Name:   streamName,
			Length: -1,
			URI:    c.baseURL() + relative,
			Tags:   nil,
		}
		if epgID, ok := streamMap["epg_channel_id"].(string); ok && epgID != "" {
			track.Tags = append(track.Tags, m3u.Tag{Name: "tvg-id", Value: epgID})
		}
		track.Tags = append(track.Tags, m3u.Tag{Name: "tvg-name", Value: streamName})
		if logo, ok := streamMap["stream_icon"].(string); ok && logo != "" {
			track.Tags = append(track.Tags, m3u.Tag{Name: "tvg-logo", Value: logo})
		}
		if categoryName := categories[flexString(streamMap["category_id"])]; categoryName != "" {
			track.Tags = append(track.Tags, m3u.Tag{Name: "group-title", Value: categoryName})
		}

		playlist.Tracks = append(playlist.Tracks, track)
	}

	utils.DebugLog("Playlist generation complete: %d total tracks", len(playlist.Tracks))
	return playlist, nil
}

// marshallInto an *os.File a Playlist.
func marshallInto(into *os.File, playlist *m3u.Playlist) error {
	into.WriteString("#EXTM3U\n") // nolint: errcheck
	for _, track := range playlist.Tracks {
		var buffer bytes.Buffer

		buffer.WriteString("#EXTINF:")                       // nolint: errcheck
		buffer.WriteString(fmt.Sprintf("%d ", track.Length)) // nolint: errcheck
		for i := range track.Tags {
			if i == len(track.Tags)-1 {
				buffer.WriteString(fmt.Sprintf("%s=%q", track.Tags[i].Name, track.Tags[i].Value)) // nolint: errcheck
				continue
			}
			buffer.WriteString(fmt.Sprintf("%s=%q ", track.Tags[i].Name, track.Tags[i].Value)) // nolint: errcheck
		}

		into.WriteString(fmt.Sprintf("%s, %s\n%s\n", buffer.String(), track.Name, track.URI)) // nolint: errcheck
	}

	return into.Sync()
}

// flexString renders provider fields that arrive as either a JSON string
// or a number.
func flexString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return fmt.Sprintf("%d", int64(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}
