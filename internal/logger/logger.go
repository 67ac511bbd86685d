// Package logger configures logrus and carries a per-request logger in the
// request context.
package logger

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
)

type contextKeyRequestLoggerType struct{}

var contextKeyRequestLogger = &contextKeyRequestLoggerType{}

const (
	requestIDKey = "requestID"
	userKey      = "user"
)

// Options controls Init.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // optional file that receives every level
}

// Init sets up the standard logrus logger. Info and below go to stdout,
// errors go to stderr, and everything is also appended to Options.File when
// set. The returned cleanup closes the log file.
func Init(opts Options) (func(), error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		var err error
		if level, err = logrus.ParseLevel(opts.Level); err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
	}

	switch opts.Format {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	logrus.SetLevel(level)

	stdout := io.Writer(os.Stdout)
	stderr := io.Writer(os.Stderr)
	cleanup := func() {}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdout = io.MultiWriter(os.Stdout, f)
		stderr = io.MultiWriter(os.Stderr, f)
	}

	// Output goes through the hooks only.
	logrus.SetOutput(io.Discard)
	logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	logrus.AddHook(&writer.Hook{
		Writer:    stdout,
		LogLevels: []logrus.Level{logrus.InfoLevel, logrus.WarnLevel, logrus.DebugLevel, logrus.TraceLevel},
	})
	logrus.AddHook(&writer.Hook{
		Writer:    stderr,
		LogLevels: []logrus.Level{logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel},
	})

	return cleanup, nil
}

// Default returns a logger without a request ID.
func Default() *logrus.Entry {
	return logrus.NewEntry(logrus.StandardLogger())
}

// ContextWithLogger returns a context carrying a logger with a fresh request
// ID. If ctx already carries a logger it is returned unchanged.
func ContextWithLogger(ctx context.Context) (context.Context, *logrus.Entry) {
	if ctx == nil {
		ctx = context.Background()
	} else if rlog := loggerFromContext(ctx); rlog != nil {
		return ctx, rlog
	}
	rlog := logrus.WithField(requestIDKey, uuid.NewString())
	return context.WithValue(ctx, contextKeyRequestLogger, rlog), rlog
}

// ContextWithUser adds the authenticated username to the context's logger.
func ContextWithUser(ctx context.Context, username string) context.Context {
	rlog := FromContext(ctx).WithField(userKey, username)
	return context.WithValue(ctx, contextKeyRequestLogger, rlog)
}

func loggerFromContext(ctx context.Context) *logrus.Entry {
	rlog, _ := ctx.Value(contextKeyRequestLogger).(*logrus.Entry)
	return rlog
}

// FromContext returns the logger from the context, or the default logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return Default()
	}
	if rlog := loggerFromContext(ctx); rlog != nil {
		return rlog
	}
	return Default()
}

// Middleware attaches a request logger to every request and echoes its ID
// in the X-Request-ID response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, rlog := ContextWithLogger(r.Context())
		if id, ok := rlog.Data[requestIDKey].(string); ok {
			w.Header().Set("X-Request-ID", id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
