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
	"flag"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var fEnableDebug = flag.Bool(
	"fuse.debug",
	false,
	"Write FUSE debugging messages, including one line per request/reply, to the configured log output.")

var fLogFile = flag.String(
	"fuse.log_file",
	"",
	"If set, write logs here (with rotation) instead of stderr.")

var gLogger *logrus.Logger
var gLoggerOnce sync.Once

func initLogger() {
	if !flag.Parsed() {
		panic("initLogger called before flags available.")
	}

	gLogger = logrus.New()
	gLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *fEnableDebug {
		gLogger.SetLevel(logrus.DebugLevel)
	} else {
		gLogger.SetLevel(logrus.InfoLevel)
	}

	var out io.Writer = logrus.StandardLogger().Out
	if *fLogFile != "" {
		out = &lumberjack.Logger{
			Filename:   *fLogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	gLogger.SetOutput(out)
}

// getLogger returns the package-wide logger, initializing it from flags on
// first use. Builder.Build uses it as the Session's logger when
// Builder.Logger is nil. It panics if the standard flag package has not
// parsed its flags yet.
func getLogger() *logrus.Logger {
	gLoggerOnce.Do(initLogger)
	return gLogger
}
