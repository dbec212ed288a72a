package monitoring

import (
	"fmt"
	"testing"
)

func TestDebugfRespectsVerbose(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetVerbose(false)
	}()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})

	SetVerbose(false)
	Debugf("hidden %d", 1)
	if len(got) != 0 {
		t.Fatalf("Debugf logged while not verbose: %v", got)
	}

	SetVerbose(true)
	Debugf("shown %d", 2)
	if len(got) != 1 || got[0] != "shown 2" {
		t.Errorf("Expected one 'shown 2' line, got %v", got)
	}
}

func TestSetLoggerNilMutes(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(string, ...interface{}) { called = true })
	SetLogger(nil)
	Logf("test")

	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}
