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
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAccumulate(t *testing.T) {
	s := New()
	s.IncSessionConnected()
	s.IncSessionConnected()
	s.IncSessionDisconnected()
	s.IncFrameByCode(0x09)
	s.IncFrameByCode(0x09)
	s.IncPDU(0x10)
	s.IncReject("opcode=0x4b")

	snap := s.Snapshot()
	assert.EqualValues(t, 1, snap.SessionsConnected)
	assert.EqualValues(t, 2, snap.FramesByCode["0x09"])
	assert.EqualValues(t, 1, snap.PDUsByID["0x10"])
	assert.EqualValues(t, 1, snap.RejectsByReason["opcode=0x4b"])
}

func TestMustRegisterWiresPrometheusCollectors(t *testing.T) {
	s := New()
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { s.MustRegister(reg) })

	s.IncSessionConnected()
	s.IncFrameByCode(0x0D)
	s.IncReject("bad")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestHandleRequestServesJSON(t *testing.T) {
	s := New()
	s.IncSessionConnected()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	s.handleRequest(rr, req)

	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `"sessions_connected":1`)
}
