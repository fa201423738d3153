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

//go:build linux

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"

	"github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"

	"github.com/facebook/avrcpd/config"
	"github.com/facebook/avrcpd/keysink"
	"github.com/facebook/avrcpd/listener"
	"github.com/facebook/avrcpd/player"
	"github.com/facebook/avrcpd/quirks"
	"github.com/facebook/avrcpd/stats"
	"github.com/facebook/avrcpd/transport"
)

// staticResolver allows every peer that connects, naming it after its
// own transport address. Real device-name/role discovery happens over
// SDP, out of scope here; a production deployment swaps this for a
// resolver backed by the system's BlueZ device cache.
type staticResolver struct {
	weAreMaster bool
}

func (r staticResolver) Resolve(remote transport.Addr) (string, bool, bool) {
	return string(remote), !r.weAreMaster, true
}

func main() {
	c := &config.Config{}

	var configFile string
	flag.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flag.StringVar(&c.DeviceName, "devicename", "avrcpd", "Friendly name advertised over SDP")
	flag.BoolVar(&c.Master, "master", true, "Run in the AVRCP Target role")
	flag.IntVar(&c.MonitoringPort, "monitoringport", 8238, "Port to run the JSON/Prometheus monitoring server on")
	flag.IntVar(&c.MetricsPort, "metricsport", 0, "If nonzero, serve Prometheus metrics on this port instead of sharing monitoringport")
	flag.StringVar(&c.LogLevel, "loglevel", "info", "Set a log level. Can be: debug, info, warning, error")
	flag.StringVar(&c.QuirksFile, "quirksfile", "", "Path to a YAML file of additional device quirk entries")
	listenAddr := flag.String("listen", ":23", "address to bind the AVCTP transport listener on (0x17, the AVCTP PSM)")
	flag.Parse()

	if configFile != "" {
		loaded, err := config.ReadConfig(configFile)
		if err != nil {
			log.Fatalf("Failed to read config %s: %v", configFile, err)
		}
		c = loaded
	}

	switch c.LogLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Fatalf("Unrecognized log level: %v", c.LogLevel)
	}

	if c.QuirksFile != "" {
		if err := quirks.LoadFile(c.QuirksFile); err != nil {
			log.Fatalf("Failed to load quirks file %s: %v", c.QuirksFile, err)
		}
	}

	st := stats.New()

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		log.Fatalf("Failed to bind %s: %v", *listenAddr, err)
	}
	tl := transport.NewTCPListener(ln, 0)

	l := listener.New(listener.Config{
		LocalAddr:  transport.Addr(ln.Addr().String()),
		Resolver:   staticResolver{weAreMaster: c.Master},
		Player:     player.New(),
		Authorizer: authorizeAlways{},
		OpenSink: func() (keysink.Sink, error) {
			return keysink.OpenUinput()
		},
		Metrics: st,
	})

	mux := http.NewServeMux()
	l.RegisterHTTP(mux)

	if c.MetricsPort != 0 {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", st.Handler())
		go func() {
			addr := fmt.Sprintf(":%d", c.MetricsPort)
			log.Infof("avrcpd: serving prometheus metrics on %s", addr)
			if err := http.ListenAndServe(addr, metricsMux); err != nil {
				log.Fatalf("Metrics server failed: %v", err)
			}
		}()
	} else {
		mux.Handle("/metrics", st.Handler())
	}

	go func() {
		if err := st.Start(c.MonitoringPort, mux); err != nil {
			log.Fatalf("Monitoring server failed: %v", err)
		}
	}()

	go func() {
		if err := l.Start(tl); err != nil {
			log.Fatalf("Listener failed: %v", err)
		}
	}()

	log.Infof("avrcpd listening on %s, master=%v", ln.Addr(), c.Master)
	if supported, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warningf("sd_notify failed: %v", err)
	} else if !supported {
		log.Debug("sd_notify not supported")
	}

	select {}
}

// authorizeAlways accepts every inbound connection without prompting.
// A real deployment replaces this with a pairing-prompt-backed
// Authorizer that surfaces the request over D-Bus/BlueZ agent APIs.
type authorizeAlways struct{}

func (authorizeAlways) Authorize(_ context.Context, _ transport.Addr, _ string) (bool, error) {
	return true, nil
}
