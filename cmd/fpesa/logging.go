package main

import (
	log "github.com/sirupsen/logrus"
)

const version = "0.1.0"

// initLog applies the counted -v/-q flags and logs the startup banner.
func initLog() {
	log.SetFormatter(&log.TextFormatter{})
	log.SetLevel(verbosityLevel(len(opts.Verbose), len(opts.Quiet)))
	log.WithField("version", version).Info("starting fpesa")
}

// verbosityLevel maps counted flags onto a logrus level: the score starts at
// 30 (warning), each -v subtracts 10, each -q adds 10, clamped to [10, 50].
func verbosityLevel(verbose, quiet int) log.Level {
	var score = 30 - 10*verbose + 10*quiet
	if score < 10 {
		score = 10
	}
	if score > 50 {
		score = 50
	}

	switch score {
	case 10:
		return log.DebugLevel
	case 20:
		return log.InfoLevel
	case 30:
		return log.WarnLevel
	case 40:
		return log.ErrorLevel
	default:
		return log.FatalLevel
	}
}

// must exits fatally on error; daemons rely on supervised restart.
func must(err error, msg string) {
	if err != nil {
		log.WithField("err", err).Fatal(msg)
	}
}
