package logging

import (
	"errors"
	"testing"
)

type recordingLogger struct {
	errs []error
	msgs []string
}

func (r *recordingLogger) Log(err error, opts LogOptions) {
	r.errs = append(r.errs, err)
	r.msgs = append(r.msgs, opts.Msg)
}

func TestErrLogChainFansOut(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	chain := NewErrLogChain(a)
	chain.Add(b)
	chain.Add(Nop)

	boom := errors.New("boom")
	chain.Log(boom, LogOptions{Msg: "probe failed", Tags: map[string]string{"domain": "example.com"}})

	for i, r := range []*recordingLogger{a, b} {
		if len(r.errs) != 1 || r.errs[0] != boom {
			t.Fatalf("logger %d: expected one boom error, got %v", i, r.errs)
		}
		if r.msgs[0] != "probe failed" {
			t.Errorf("logger %d: msg = %q", i, r.msgs[0])
		}
	}
}

func TestSetupFallsBackToInfo(t *testing.T) {
	Setup("not-a-level", false)
	Setup("debug", true)
	NewZeroLogger(map[string]string{"app": "test"}).Log(errors.New("x"), LogOptions{Msg: "ok"})
}
