package entity

import "log"

func logWarning(format string, v ...any) {
	log.Printf("warning: "+format, v...)
}

func logInfo(format string, v ...any) {
	log.Printf(format, v...)
}
