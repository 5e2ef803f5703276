// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds cmd/fusesession's layered configuration: flags,
// unmarshalled through viper into a plain struct, and an optional YAML
// file. Environment variables are not read.
package config

import "github.com/spf13/pflag"

// Config is cmd/fusesession's full configuration surface.
type Config struct {
	DevicePath   string   `mapstructure:"device-path" yaml:"device-path"`
	MountPath    string   `mapstructure:"mount-path" yaml:"mount-path"`
	MountOptions []string `mapstructure:"mount-options" yaml:"mount-options"`
	Debug        bool     `mapstructure:"debug" yaml:"debug"`
	LogFile      string   `mapstructure:"log-file" yaml:"log-file"`
	MetricsAddr  string   `mapstructure:"metrics-addr" yaml:"metrics-addr"`
}

// BindFlags registers every Config field on fs, under the mapstructure tag
// name, so viper.BindPFlags(fs) picks them all up.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("device-path", "/dev/fuse", "FUSE device to read requests from")
	fs.String("mount-path", "", "directory to mount at (required)")
	fs.StringSlice("mount-options", nil, "comma-separated mount(8) options; defaults to the builder's own defaults when empty")
	fs.Bool("debug", false, "enable debug logging")
	fs.String("log-file", "", "rotate logs to this file instead of stderr")
	fs.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9100)")
}
