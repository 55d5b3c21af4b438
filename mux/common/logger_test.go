package common

import "testing"

func TestInitLoggersRepeatable(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Repeated InitLoggers panicked: %v", r)
		}
	}()

	// The logger factory may only be registered once per process; repeated
	// initialization must still be safe and only adjust the levels
	InitLoggers("error")
	InitLoggers("debug")
	InitLoggers("info")
}
