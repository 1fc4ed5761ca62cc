package cobtree

import (
	"testing"

	"github.com/nikandfor/tlog"
)

// tl is the package-level verbosity-gated logger, matching the
// teacher's xrain.tl. nil until InitTestLogger or SetLogger is called,
// in which case tl.V(...) is a safe no-op (tlog's Logger is nil-safe).
var tl *tlog.Logger

// SetLogger installs l as the package-level logger. Pass nil to
// silence logging entirely.
func SetLogger(l *tlog.Logger) {
	tl = l
}

// testLogWriter adapts a testing.TB's Logf method to an io.Writer so
// it can back a tlog.Logger.
type testLogWriter struct {
	t testing.TB
}

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

// InitTestLogger installs a logger that writes tlog.Printf output
// through t.Logf, filtered to the verbosity topics named in v.
func InitTestLogger(t testing.TB, v string) *tlog.Logger {
	l := tlog.New(testLogWriter{t: t})
	l.SetVerbosity(v)
	tl = l
	return tl
}
