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

package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeRoundTrip(t *testing.T) {
	a, b := NewPipe("AA:AA:AA:AA:AA:AA", "BB:BB:BB:BB:BB:BB")
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.Write([]byte{0x01, 0x02, 0x03}))
	msg, err := b.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, msg)

	assert.Equal(t, Addr("AA:AA:AA:AA:AA:AA"), a.LocalAddr())
	assert.Equal(t, Addr("AA:AA:AA:AA:AA:AA"), b.RemoteAddr())
}

func TestPipeCloseUnblocksRead(t *testing.T) {
	a, b := NewPipe("AA:AA:AA:AA:AA:AA", "BB:BB:BB:BB:BB:BB")
	defer b.Close()

	done := make(chan error, 1)
	go func() {
		_, err := a.Read()
		done <- err
	}()

	require.NoError(t, a.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Read did not unblock after Close")
	}
}

func TestPipeWriteAfterCloseFails(t *testing.T) {
	a, b := NewPipe("AA:AA:AA:AA:AA:AA", "BB:BB:BB:BB:BB:BB")
	defer b.Close()

	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Write([]byte{0x00}), ErrClosed)
}
