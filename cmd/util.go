// elassemble: a high-performance de novo genome assembler.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elassemble/blob/master/LICENSE.txt>.

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/google/uuid"
	logging "github.com/op/go-logging"
	"golang.org/x/sys/unix"

	"github.com/exascience/elassemble/internal"
	"github.com/exascience/elassemble/utils"
)

var log = logging.MustGetLogger("elassemble")

// ProgramMessage is the first line printed when the elassemble binary
// is called.
var ProgramMessage string

// runID identifies the log file of one invocation.
var runID = uuid.New()

func init() {
	ProgramMessage = fmt.Sprint(
		"\n", utils.ProgramName, " version ", utils.ProgramVersion,
		" compiled with ", runtime.Version(), " ", internal.PedanticMessage,
		"- see ", utils.ProgramURL, " for more information.\n",
	)
}

const (
	terminalFormat = `%{color}%{time:15:04:05} %{shortfunc} | %{level:.6s} %{color:reset} %{message}`
	fileFormat     = `%{time:2006-01-02 15:04:05.000} %{module} %{shortfunc} | %{level:.6s} %{message}`
)

// setLogBackend sends log records at or above level to the terminal
// with colors, and to the optional file without.
func setLogBackend(level string, terminal, file io.Writer) error {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	backend := logging.AddModuleLevel(logging.NewBackendFormatter(
		logging.NewLogBackend(terminal, "", 0),
		logging.MustStringFormatter(terminalFormat)))
	backend.SetLevel(lvl, "")
	if file == nil {
		logging.SetBackend(backend)
		return nil
	}
	fileBackend := logging.AddModuleLevel(logging.NewBackendFormatter(
		logging.NewLogBackend(file, "", 0),
		logging.MustStringFormatter(fileFormat)))
	fileBackend.SetLevel(lvl, "")
	logging.SetBackend(backend, fileBackend)
	return nil
}

func logCheckFile(parameter, format string, v ...interface{}) {
	if parameter != "" {
		log.Errorf(format+" for command line parameter %v.", append(v, parameter)...)
	} else {
		log.Errorf(format+".", v...)
	}
}

func checkExist(parameter, filename string) bool {
	if len(filename) == 0 {
		logCheckFile(parameter, "Missing filename")
		return false
	}
	if filename == "-" {
		return true
	}
	if filename[0] == '-' {
		logCheckFile(parameter, "Missing filename before %v", filename)
		return false
	}
	if _, err := os.Stat(filename); err == nil {
		return true
	} else if os.IsNotExist(err) {
		logCheckFile(parameter, "File %v does not exist", filename)
		return false
	} else if os.IsPermission(err) {
		logCheckFile(parameter, "No permission to read file %v", filename)
		return false
	} else {
		logCheckFile(parameter, "Error %v when trying to access file %v", err, filename)
		return false
	}
}

func checkCreate(parameter, filename string) bool {
	if len(filename) == 0 {
		logCheckFile(parameter, "Missing filename")
		return false
	}
	if filename == "-" {
		return true
	}
	if filename[0] == '-' {
		logCheckFile(parameter, "Missing filename before %v", filename)
		return false
	}
	if _, err := os.Stat(filename); err == nil {
		// Assume that the file has been written by previous runs, and can be overwritten.
		return true
	}
	err := os.MkdirAll(filepath.Dir(filename), 0700)
	if err == nil {
		err = os.WriteFile(filename, nil, 0666)
	}
	if err != nil {
		if os.IsPermission(err) {
			logCheckFile(parameter, "No permission to create file %v", filename)
		} else {
			logCheckFile(parameter, "Error %v when trying to create file %v", err, filename)
		}
		return false
	}
	_ = os.Remove(filename)
	return true
}

func createLogFilename(t time.Time) string {
	zone, _ := t.Zone()
	return fmt.Sprintf("logs/elassemble/elassemble-%d-%02d-%02d-%02d-%02d-%02d-%v-%v.log",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), zone, runID)
}

// setLogOutput creates a log file under path, or under $HOME if path
// is empty. Standard error is redirected into the file, and log
// records go to both the file and the original standard error.
func setLogOutput(path, level string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("setting up log file: %v", r)
		}
	}()
	logPath := createLogFilename(time.Now())
	var fullPath string
	if path == "" {
		fullPath = filepath.Join(os.Getenv("HOME"), logPath)
	} else {
		fullPath = filepath.Join(path, logPath)
	}
	internal.MkdirAll(filepath.Dir(fullPath), 0700)
	f := internal.FileCreate(fullPath)
	fmt.Fprintln(f, ProgramMessage)

	orgStderr, err := unix.Dup(2)
	if err != nil {
		return err
	}
	ferr := os.NewFile(uintptr(orgStderr), "/dev/stderr")
	if err := unix.Dup2(int(f.Fd()), 2); err != nil {
		return err
	}
	if err := setLogBackend(level, ferr, f); err != nil {
		return err
	}
	log.Infof("Created log file at %v", fullPath)
	log.Infof("Command line: %v", os.Args)
	return nil
}

// timedRun runs f as one phase of a command. Panics in f are returned
// as errors.
func timedRun(timed bool, profile, msg string, phase int64, f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v: %v", msg, r)
		}
	}()
	if profile != "" {
		filename := profile + strconv.FormatInt(phase, 10) + ".prof"
		file := internal.FileCreate(filename)
		defer internal.Close(file)
		if err := pprof.StartCPUProfile(file); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}
	if timed {
		log.Notice(msg)
		start := time.Now()
		defer func() {
			log.Noticef("Elapsed time: %v", time.Since(start))
		}()
	}
	return f()
}
