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

package fuse

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequestsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fuse",
		Name:      "requests_parsed_total",
		Help:      "Kernel requests the session loop has parsed off the device.",
	})

	metricRepliesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fuse",
		Name:      "replies_written_total",
		Help:      "Replies the session loop has written back to the device.",
	})

	metricReadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fuse",
		Name:      "device_read_errors_total",
		Help:      "Device read errors, by severity (transient, terminal, fatal).",
	}, []string{"severity"})

	metricInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fuse",
		Name:      "requests_in_flight",
		Help:      "Requests handed to the application that have not yet been replied to.",
	})
)
