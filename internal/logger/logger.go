package logger

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Init configures the process-wide logger. Debug mode traces frame
// computation; otherwise only warnings and errors reach the terminal.
func Init(debug, noColor bool) {
	log.SetDefault(log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		ReportCaller:    debug,
		Prefix:          "framegen",
	}))

	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	log.SetColorProfile(termenv.ANSI256)
	if noColor {
		log.SetColorProfile(termenv.Ascii)
	}
}
