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

package resolver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/lucasduport/stream-web/pkg/utils"
)

// storageFileName is the fixed storage key for the credential record.
const storageFileName = "credentials.json"

// Store persists the single provider credential record to a JSON file under
// the storage directory. Writes go through a temp file and rename so a
// record is never observed half-written.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates the storage directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, utils.PrintErrorAndReturn(err)
	}
	return &Store{path: filepath.Join(dir, storageFileName)}, nil
}

// Load reads the persisted credentials. A missing record returns (nil, nil).
// A corrupt record is treated as absent and removed; it never propagates an
// error to the caller.
func (s *Store) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, utils.PrintErrorAndReturn(err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil || creds.Validate() != nil {
		utils.WarnLog("Discarding corrupt credential record at %s", s.path)
		os.Remove(s.path)
		return nil, nil
	}

	return &creds, nil
}

// Save atomically replaces the persisted record.
func (s *Store) Save(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return utils.PrintErrorAndReturn(err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return utils.PrintErrorAndReturn(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return utils.PrintErrorAndReturn(err)
	}

	return nil
}

// Clear removes the persisted record. Safe to call when none exists.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return utils.PrintErrorAndReturn(err)
	}
	return nil
}
