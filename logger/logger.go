package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the process-wide logger. Output goes to stderr so anything the
// pipelines print for the user on stdout stays clean.
func New(debug bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// WithFile tees the logger's output into the named file in addition to
// stderr. The returned closer is the file handle.
func WithFile(l *logrus.Logger, path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	l.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}
