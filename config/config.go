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

// Package config holds cmd/avrcpd's on-disk configuration.
package config

import (
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Config specifies avrcpd's run options.
type Config struct {
	// DeviceName is this adapter's own Bluetooth friendly name,
	// advertised during SDP/service discovery.
	DeviceName string `yaml:"device_name"`
	// Master selects the Target role (we own the PlayerFacade and
	// answer Metadata Transfer PDUs) versus the Controller role.
	Master bool `yaml:"master"`
	// PSM is the L2CAP PSM for the AVCTP listener, normally
	// avrcp.PSM. cmd/avrcpd's TCP stand-in listener binds its -listen
	// address and does not read this field.
	PSM uint16 `yaml:"psm"`
	// MonitoringPort serves the JSON stats dump and, if
	// MetricsPort is zero, doubles as the Prometheus scrape port.
	MonitoringPort int `yaml:"monitoring_port"`
	// MetricsPort, if nonzero, serves Prometheus metrics on its own
	// listener instead of sharing MonitoringPort.
	MetricsPort int `yaml:"metrics_port"`
	// LogLevel is a logrus level name ("debug", "info", "warning", ...).
	LogLevel string `yaml:"log_level"`
	// QuirksFile, if set, is a YAML file of additional device-name
	// quirk entries merged on top of the built-in seed table.
	QuirksFile string `yaml:"quirks_file"`
}

// ReadConfig reads Config from the YAML file at path.
func ReadConfig(path string) (*Config, error) {
	c := &Config{
		PSM:            0x17,
		MonitoringPort: 8238,
		LogLevel:       "info",
	}

	cData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(cData, c); err != nil {
		return nil, err
	}

	return c, nil
}
