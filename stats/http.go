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

package stats

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Handler returns the http.Handler serving this Stats' Prometheus
// metrics, meant to be mounted at "/metrics".
func (s *Stats) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Start runs an http server on monitoringPort exposing the JSON counter
// snapshot at "/" of mux (a fresh mux if mux is nil). It does not mount
// "/metrics"; callers mount Handler on mux themselves. It blocks; call
// it from its own goroutine.
func (s *Stats) Start(monitoringPort int, mux *http.ServeMux) error {
	if mux == nil {
		mux = http.NewServeMux()
	}
	mux.HandleFunc("/", s.handleRequest)

	addr := fmt.Sprintf(":%d", monitoringPort)
	log.Infof("stats: starting http json server on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Stats) handleRequest(w http.ResponseWriter, r *http.Request) {
	js, err := json.Marshal(s.Snapshot())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(js); err != nil {
		log.Errorf("stats: failed to reply: %v", err)
	}
}
