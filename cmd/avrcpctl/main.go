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

// Command avrcpctl is a companion CLI for a running avrcpd: it prints
// the active session table, drives VolumeUp/VolumeDown over its
// monitoring HTTP server, and decodes AVCTP frames out of a capture
// file for offline debugging.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebook/avrcpd/avctp"
	"github.com/facebook/avrcpd/listener"
	"github.com/facebook/avrcpd/pcapdump"
)

var addr string

func main() {
	root := &cobra.Command{
		Use:   "avrcpctl",
		Short: "Inspect and drive a running avrcpd",
	}
	root.PersistentFlags().StringVar(&addr, "addr", "http://localhost:8238", "avrcpd monitoring server base URL")

	root.AddCommand(newSessionsCmd(), newVolumeCmd(), newReplayCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "Print the active session table",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := fetchSessions(addr)
			if err != nil {
				return fmt.Errorf("fetching sessions from %s: %w", addr, err)
			}
			printSessions(sessions)
			return nil
		},
	}
}

func newVolumeCmd() *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:       "volume [up|down]",
		Short:     "Send VOLUME_UP or VOLUME_DOWN to a connected device",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return postVolume(addr, remote, args[0])
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "remote device address (required)")
	_ = cmd.MarkFlagRequired("remote")
	return cmd
}

func newReplayCmd() *cobra.Command {
	var skip int
	cmd := &cobra.Command{
		Use:   "replay <capture.pcap>",
		Short: "Decode AVCTP frames out of a pcap capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := pcapdump.ReadFrames(args[0], skip)
			if err != nil {
				return err
			}
			printFrames(frames)
			return nil
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "bytes to strip from the front of each captured packet before AVCTP decode")
	return cmd
}

func fetchSessions(baseAddr string) ([]listener.SessionInfo, error) {
	resp, err := http.Get(baseAddr + "/sessions")
	if err != nil {
		return nil, fmt.Errorf("fetching sessions: %w", err)
	}
	defer resp.Body.Close()

	var sessions []listener.SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("decoding sessions: %w", err)
	}
	return sessions, nil
}

func postVolume(baseAddr, remote, dir string) error {
	url := fmt.Sprintf("%s/sessions/volume?remote=%s&dir=%s", baseAddr, remote, dir)
	resp, err := http.Post(url, "", nil)
	if err != nil {
		return fmt.Errorf("posting volume %s for %s: %w", dir, remote, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("avrcpd returned %s", resp.Status)
	}
	return nil
}

// stateColor mirrors ptpcheck's OK/WARN/FAIL status coloring: a
// healthy state prints green, anything mid-transition yellow.
func stateColor(state string) string {
	switch state {
	case "Connected":
		return color.GreenString(state)
	case "Connecting":
		return color.YellowString(state)
	default:
		return color.RedString(state)
	}
}

func printSessions(sessions []listener.SessionInfo) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"local", "remote", "state", "target", "quirks"})
	for _, s := range sessions {
		table.Append([]string{
			s.LocalAddr,
			s.RemoteAddr,
			stateColor(s.State),
			strconv.FormatBool(s.IsTarget),
			strconv.Itoa(s.Quirks),
		})
	}
	table.Render()
}

func printFrames(frames []avctp.Frame) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"transaction", "cr", "pid", "code", "opcode"})
	for _, f := range frames {
		table.Append([]string{
			strconv.Itoa(int(f.Transaction)),
			f.CR.String(),
			fmt.Sprintf("0x%04x", f.PID),
			fmt.Sprintf("0x%02x", f.Code),
			fmt.Sprintf("0x%02x", f.Opcode),
		})
	}
	table.Render()
}
