// Package logging configures zerolog and provides the error reporting chain
// (zerolog always, Sentry when a DSN is configured).
package logging

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger.
func Setup(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

type LogOptions struct {
	Tags map[string]string
	Msg  string
}

// ErrLogger reports errors that need operator attention.
type ErrLogger interface {
	Log(error, LogOptions)
}

type SentryHub struct {
	client *sentry.Client
}

func NewSentryHub(dsn, env string) (*SentryHub, error) {
	c, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	})
	if err != nil {
		return nil, err
	}
	return &SentryHub{client: c}, nil
}

func (hub *SentryHub) GetLogger(tags map[string]string) ErrLogger {
	scope := sentry.NewScope()
	for k, v := range tags {
		scope.SetTag(k, v)
	}
	return &sentryLogger{h: sentry.NewHub(hub.client, scope)}
}

type sentryLogger struct {
	h *sentry.Hub
}

func (l *sentryLogger) Log(err error, opts LogOptions) {
	scope := l.h.PushScope()
	defer l.h.PopScope()
	for k, v := range opts.Tags {
		scope.SetTag(k, v)
	}
	if opts.Msg != "" {
		scope.SetExtra("msg", opts.Msg)
	}
	l.h.CaptureException(err)
	l.h.Flush(100 * time.Millisecond)
}

type zeroLogger struct {
	l zerolog.Logger
}

func (l *zeroLogger) Log(err error, opts LogOptions) {
	ev := l.l.Err(err)
	for k, v := range opts.Tags {
		ev = ev.Str(k, v)
	}
	ev.Msg(opts.Msg)
}

// NewZeroLogger logs errors through the global logger with fixed tags.
func NewZeroLogger(tags map[string]string) ErrLogger {
	ctx := log.Logger.With()
	for k, v := range tags {
		ctx = ctx.Str(k, v)
	}
	return &zeroLogger{l: ctx.Logger()}
}

type ErrLogChain struct {
	loggers []ErrLogger
}

func (chain *ErrLogChain) Log(err error, opts LogOptions) {
	for _, l := range chain.loggers {
		l.Log(err, opts)
	}
}

func (chain *ErrLogChain) Add(el ErrLogger) {
	chain.loggers = append(chain.loggers, el)
}

func NewErrLogChain(loggers ...ErrLogger) *ErrLogChain {
	return &ErrLogChain{loggers: loggers}
}

// Nop discards everything; used by tests.
var Nop ErrLogger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Log(error, LogOptions) {}

// GooseLogger adapts zerolog to goose's logger interface.
type GooseLogger struct{}

func (GooseLogger) Printf(format string, v ...interface{}) {
	log.Info().Str("component", "migrations").Msgf(format, v...)
}

func (GooseLogger) Fatalf(format string, v ...interface{}) {
	log.Fatal().Str("component", "migrations").Msgf(format, v...)
}
