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

// Package main is a thin demonstration binary for the fuse session core:
// it mounts, logs every request it receives, and replies ENOSYS to all of
// them. It implements no filesystem semantics; see the package doc of
// github.com/jacobsa/fusesession for the library this wraps.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	fuse "github.com/jacobsa/fusesession"
	"github.com/jacobsa/fusesession/internal/config"
)

var (
	cfgFile string
	cfg     config.Config
	bindErr error
)

var rootCmd = &cobra.Command{
	Use:   "fusesession",
	Short: "Mount a FUSE filesystem and log requests (demonstration only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		return run(cfg)
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "path to a YAML config file")
	config.BindFlags(rootCmd.PersistentFlags())
	bindErr = viper.BindPFlags(rootCmd.PersistentFlags())
}

// initConfig layers configuration as flags > config file > flag defaults.
// The config file is parsed with yaml.v3 directly (not through viper's
// built-in codec) so an explicit --config-file error names the file.
func initConfig() {
	if err := viper.Unmarshal(&cfg); err != nil {
		bindErr = fmt.Errorf("unmarshalling flags: %w", err)
		return
	}

	if cfgFile == "" {
		return
	}

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		bindErr = fmt.Errorf("reading config file %s: %w", cfgFile, err)
		return
	}

	var fileCfg config.Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		bindErr = fmt.Errorf("parsing config file %s: %w", cfgFile, err)
		return
	}

	// Flags explicitly set on the command line win over the file; anything
	// the file sets and a flag left at its default fills in from the file.
	flags := rootCmd.PersistentFlags()
	if !flags.Changed("device-path") && fileCfg.DevicePath != "" {
		cfg.DevicePath = fileCfg.DevicePath
	}
	if !flags.Changed("mount-path") && fileCfg.MountPath != "" {
		cfg.MountPath = fileCfg.MountPath
	}
	if !flags.Changed("mount-options") && len(fileCfg.MountOptions) > 0 {
		cfg.MountOptions = fileCfg.MountOptions
	}
	if !flags.Changed("debug") && fileCfg.Debug {
		cfg.Debug = fileCfg.Debug
	}
	if !flags.Changed("log-file") && fileCfg.LogFile != "" {
		cfg.LogFile = fileCfg.LogFile
	}
	if !flags.Changed("metrics-addr") && fileCfg.MetricsAddr != "" {
		cfg.MetricsAddr = fileCfg.MetricsAddr
	}
}

func run(cfg config.Config) error {
	if cfg.MountPath == "" {
		return fmt.Errorf("%w: --mount-path is required", fuse.EINVAL)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if cfg.LogFile != "" {
		logrus.SetOutput(&lumberjack.Logger{Filename: cfg.LogFile})
	}

	var opts []fuse.MountOption
	for _, raw := range cfg.MountOptions {
		o, ok := fuse.ParseMountOption(raw)
		if !ok {
			return fmt.Errorf("%w: unrecognized mount option %q", fuse.EINVAL, raw)
		}
		opts = append(opts, o)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logrus.WithError(err).Warn("metrics server stopped")
			}
		}()
	}

	requests := make(chan *fuse.Request, fuse.RequestChannelCapacity)
	b := fuse.NewBuilder()
	b.DevicePath = cfg.DevicePath
	b.MountPath = cfg.MountPath
	b.Requests = requests
	b.Logger = logrus.StandardLogger()
	if len(opts) > 0 {
		b.MountOptions = opts
	}

	session, err := b.Build()
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		session.Cancel()
	}()

	for req := range session.Requests() {
		logrus.WithFields(logrus.Fields{
			"session": session.ID(),
			"unique":  req.Header.Unique,
			"nodeid":  req.Header.Nodeid,
		}).Debug("request")
		req.ReplyTo <- fuse.NewErrorReply(req.Header.Unique, fuse.ENOSYS)
	}

	<-session.Done()
	return session.Err()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
