// Package logsetup configures the standard logger. Binaries import it for
// its side effect.
package logsetup

import (
	"log"
	"os"
)

func init() {
	// journald adds its own timestamps
	if os.Getenv("JOURNAL_STREAM") != "" {
		log.SetFlags(0)
	} else {
		log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	}
	log.SetOutput(os.Stderr)
}
