package proofslog

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
)

// SetupLogLevels sets the default subsystem levels unless GOLOG_LOG_LEVEL
// already configured them.
func SetupLogLevels() {
	if _, set := os.LookupEnv("GOLOG_LOG_LEVEL"); set {
		return
	}

	_ = logging.SetLogLevel("*", "INFO")
	_ = logging.SetLogLevel("zigzag", "WARN")
	_ = logging.SetLogLevel("vdfpost", "WARN")
	_ = logging.SetLogLevel("compound", "WARN")
	_ = logging.SetLogLevel("fsutil", "WARN")
}
