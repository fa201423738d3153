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

package quirks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForDeviceNokia(t *testing.T) {
	table := ForDevice("Nokia CK-20W")
	assert.True(t, table.Has(OpcodePlay, NoRelease))
	assert.True(t, table.Has(OpcodeForward, NoRelease))
	assert.True(t, table.Has(OpcodeBackward, NoRelease))
	assert.False(t, table.Has(OpcodeRewind, NoRelease))
}

func TestForDeviceCaseInsensitive(t *testing.T) {
	table := ForDevice("nokia ck-20w")
	assert.True(t, table.Has(OpcodePlay, NoRelease))
}

func TestForDeviceUnknown(t *testing.T) {
	table := ForDevice("Some Other Headset")
	assert.False(t, table.Has(OpcodePlay, NoRelease))
	assert.Empty(t, table)
}

func TestLoadFileAddsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quirks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- name_prefix: "Acme Test Headphones"
  no_release_opcodes: [0x48]
`), 0o600))

	require.NoError(t, LoadFile(path))
	table := ForDevice("Acme Test Headphones v2")
	assert.True(t, table.Has(OpcodeRewind, NoRelease))
}
