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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facebook/avrcpd/session"
	"github.com/facebook/avrcpd/transport"
)

func TestHandleVolumeDrivesSession(t *testing.T) {
	resolver := &fakeResolver{}
	resolver.allow("DD:DD:DD:DD:DD:DD", "Some Device", true)
	l := newTestListener(resolver)
	tl := newFakeTransportListener()
	go l.Start(tl)
	defer l.Stop()

	local, remote := transport.NewPipe("AA:AA:AA:AA:AA:AA", "DD:DD:DD:DD:DD:DD")
	defer remote.Close()
	tl.incoming <- local

	var sessions []*session.Session
	require.Eventually(t, func() bool {
		sessions = l.Sessions()
		return len(sessions) == 1 && sessions[0].State() == session.Connected
	}, time.Second, time.Millisecond)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/volume?remote=DD:DD:DD:DD:DD:DD&dir=up", nil)
	l.handleVolume(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	b, err := remote.Read()
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}

func TestHandleVolumeUnknownRemote(t *testing.T) {
	resolver := &fakeResolver{}
	l := newTestListener(resolver)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/volume?remote=ZZ&dir=up", nil)
	l.handleVolume(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleVolumeRejectsGet(t *testing.T) {
	resolver := &fakeResolver{}
	l := newTestListener(resolver)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions/volume", nil)
	l.handleVolume(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
