package logger

import (
	"testing"
)

type entry struct {
	level   string
	message string
	keyvals []any
}

type recorder struct {
	entries []entry
}

func (r *recorder) add(level, message string, keyvals []any) {
	r.entries = append(r.entries, entry{level, message, keyvals})
}

func (r *recorder) Log(m string, kv ...any)   { r.add("log", m, kv) }
func (r *recorder) Debug(m string, kv ...any) { r.add("debug", m, kv) }
func (r *recorder) Info(m string, kv ...any)  { r.add("info", m, kv) }
func (r *recorder) Warn(m string, kv ...any)  { r.add("warn", m, kv) }
func (r *recorder) Error(m string, kv ...any) { r.add("error", m, kv) }
func (r *recorder) Fatal(m string, kv ...any) { r.add("fatal", m, kv) }

func TestDispatchFansOutByLevel(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Init(a, b)
	defer Reset()

	Log("l")
	Debug("d", "k", 1)
	Info("i")
	Warn("w")
	Error("e")
	Fatal("f")

	want := []string{"log", "debug", "info", "warn", "error", "fatal"}
	for _, r := range []*recorder{a, b} {
		if len(r.entries) != len(want) {
			t.Fatalf("expected %d entries, got %d", len(want), len(r.entries))
		}
		for i, level := range want {
			if r.entries[i].level != level {
				t.Fatalf("expected entry %d at %s, got %s", i, level, r.entries[i].level)
			}
		}
	}
	if kv := a.entries[1].keyvals; len(kv) != 2 || kv[0] != "k" || kv[1] != 1 {
		t.Fatalf("expected keyvals to be passed through, got %v", kv)
	}
}

func TestUninitializedLoggerIsNoop(t *testing.T) {
	r := &recorder{}
	Init(r)
	Reset()

	Info("dropped")
	if len(r.entries) != 0 {
		t.Fatalf("expected no entries after reset, got %d", len(r.entries))
	}
}
