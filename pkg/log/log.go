/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

type LogLevel int

const (
	LogPrefix     = "[go-hycap] "
	ErrorPrefix   = "[error] "
	WarningPrefix = "[warn] "
	InfoPrefix    = "[info] "
	DebugPrefix   = "[debug] "
	HelpLevels    = "Must be one of: error, warning, info, debug."
	DefaultLevel  = "info"
)

const (
	ErrorLevel LogLevel = iota
	WarningLevel
	InfoLevel
	DebugLevel
)

var levelMapping = map[string]LogLevel{
	"error":   ErrorLevel,
	"warning": WarningLevel,
	"info":    InfoLevel,
	"debug":   DebugLevel,
}

// ErrLogLevel returned when the level name is not one of HelpLevels
type ErrLogLevel struct {
	Level string
}

func (e ErrLogLevel) Error() string {
	return fmt.Sprintf("Wrong log level %q. %s", e.Level, HelpLevels)
}

type Logger struct {
	level LogLevel
	out   io.Writer
	*log.Logger
}

var logger = &Logger{
	level:  InfoLevel,
	out:    os.Stderr,
	Logger: log.New(os.Stderr, LogPrefix, log.LstdFlags),
}

func SetLevel(strLevel string) error {
	level, ok := levelMapping[strLevel]
	if !ok {
		return ErrLogLevel{Level: strLevel}
	}
	logger.level = level
	return nil
}

// Init redirects the logger and sets its level. An empty level keeps DefaultLevel.
func Init(out io.Writer, strLevel string) error {
	logger.out = out
	logger.SetOutput(out)
	if strLevel == "" {
		strLevel = DefaultLevel
	}
	return SetLevel(strLevel)
}

// Writer is the destination of log lines. Access logs of the API server go there too.
func Writer() io.Writer {
	return logger.out
}

func Enabled(level LogLevel) bool {
	return logger.level >= level
}

func Error(format string, v ...interface{}) {
	if Enabled(ErrorLevel) {
		logger.Println(fmt.Sprintf(ErrorPrefix+format, v...))
	}
}

func Warning(format string, v ...interface{}) {
	if Enabled(WarningLevel) {
		logger.Println(fmt.Sprintf(WarningPrefix+format, v...))
	}
}

func Info(format string, v ...interface{}) {
	if Enabled(InfoLevel) {
		logger.Println(fmt.Sprintf(InfoPrefix+format, v...))
	}
}

func Debug(format string, v ...interface{}) {
	if Enabled(DebugLevel) {
		logger.Println(fmt.Sprintf(DebugPrefix+format, v...))
	}
}
