/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package listener

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/avrcpd/transport"
)

// SessionInfo is the JSON-serializable shape of one row in the active
// session table, served at "/sessions" and rendered by cmd/avrcpctl.
type SessionInfo struct {
	LocalAddr  string `json:"local_addr"`
	RemoteAddr string `json:"remote_addr"`
	State      string `json:"state"`
	IsTarget   bool   `json:"is_target"`
	Quirks     int    `json:"quirks"`
}

// SessionsInfo snapshots the active session table into its JSON shape.
func (l *Listener) SessionsInfo() []SessionInfo {
	sessions := l.Sessions()
	out := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionInfo{
			LocalAddr:  string(s.LocalAddr()),
			RemoteAddr: string(s.RemoteAddr()),
			State:      s.State().String(),
			IsTarget:   s.IsTarget(),
			Quirks:     len(s.Quirks()),
		})
	}
	return out
}

// RegisterHTTP mounts a "/sessions" JSON endpoint and a "/sessions/volume"
// control endpoint for mux, both read/driven by cmd/avrcpctl.
func (l *Listener) RegisterHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		js, err := json.Marshal(l.SessionsInfo())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(js); err != nil {
			log.Errorf("listener: failed to reply: %v", err)
		}
	})

	mux.HandleFunc("/sessions/volume", l.handleVolume)
}

// handleVolume drives one Session's VolumeUp/VolumeDown, the IPC
// surface spec.md §6 names, over HTTP for cmd/avrcpctl's "volume"
// subcommand. It expects POST ?remote=<addr>&dir=up|down.
func (l *Listener) handleVolume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	remote := transport.Addr(r.URL.Query().Get("remote"))
	dir := r.URL.Query().Get("dir")

	s, ok := l.SessionByRemote(remote)
	if !ok {
		http.Error(w, fmt.Sprintf("no session for remote %q", remote), http.StatusNotFound)
		return
	}

	var err error
	switch dir {
	case "up":
		err = s.VolumeUp()
	case "down":
		err = s.VolumeDown()
	default:
		http.Error(w, fmt.Sprintf("dir must be up or down, got %q", dir), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
