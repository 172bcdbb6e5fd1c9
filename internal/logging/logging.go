// ABOUTME: Log output setup for whisperprep executables
// ABOUTME: Routes the standard logger to a rotating file and optionally the console
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Resonate-Protocol/whisperprep/internal/config"
)

// Setup points the standard logger at the configured rotating log file.
// With console set, output is also written to stderr. An empty file name logs to stderr only.
// The returned closer flushes the log file.
func Setup(cfg config.LoggingConfig, console bool) io.Closer {
	if cfg.File == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil)
	}

	w := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB, // MB
		MaxBackups: cfg.MaxBackups,
	}

	if console {
		log.SetOutput(io.MultiWriter(os.Stderr, w))
	} else {
		log.SetOutput(w)
	}
	return w
}
