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
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

var procStartTime = time.Now()

// collectProcessStats gathers the same rss/uptime/goroutine-count
// shape sptp's sysstats.go reports for its own daemon, folded into
// the JSON snapshot under the "process" key instead of a separate
// fb303-style counters endpoint.
func collectProcessStats() map[string]uint64 {
	out := map[string]uint64{
		"uptime_seconds": uint64(time.Since(procStartTime).Seconds()),
		"num_goroutines": uint64(runtime.NumGoroutine()),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return out
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		out["rss_bytes"] = mem.RSS
		out["vms_bytes"] = mem.VMS
	}
	if n, err := proc.NumFDs(); err == nil {
		out["num_fds"] = uint64(n)
	}
	return out
}
