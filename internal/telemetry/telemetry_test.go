package telemetry

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	clock := time.Unix(1000, 0)
	l.lim.now = func() time.Time { return clock }
	return l, logs
}

func advance(l *Logger, d time.Duration) {
	prev := l.lim.now()
	l.lim.now = func() time.Time { return prev.Add(d) }
}

func TestThrottleSuppressesWithinPeriod(t *testing.T) {
	l, logs := newObserved()

	for i := 0; i < 5; i++ {
		l.WarnEvery(time.Second, "tilt", "tilt saturated")
	}

	if n := logs.Len(); n != 1 {
		t.Errorf("expected 1 entry within throttle period, got %d", n)
	}
}

func TestThrottleAllowsAfterPeriod(t *testing.T) {
	l, logs := newObserved()

	l.WarnEvery(time.Second, "tilt", "tilt saturated")
	advance(l, 1500*time.Millisecond)
	l.WarnEvery(time.Second, "tilt", "tilt saturated")

	if n := logs.Len(); n != 2 {
		t.Errorf("expected 2 entries across periods, got %d", n)
	}
}

func TestThrottleKeysAreIndependent(t *testing.T) {
	l, logs := newObserved()

	l.ErrorEvery(time.Second, "nan_x", "nan in x")
	l.ErrorEvery(time.Second, "nan_y", "nan in y")

	if n := logs.Len(); n != 2 {
		t.Errorf("expected independent keys to both log, got %d entries", n)
	}
}

func TestNamedSharesLimiter(t *testing.T) {
	l, logs := newObserved()
	child := l.Named("nsf")

	l.InfoEvery(time.Second, "report", "integrals")
	child.InfoEvery(time.Second, "report", "integrals")

	if n := logs.Len(); n != 1 {
		t.Errorf("expected shared limiter across Named loggers, got %d entries", n)
	}
}

func TestPlainLevelsPassThrough(t *testing.T) {
	l, logs := newObserved()

	l.Infof("activated with mass %.2f kg", 3.5)
	l.Warnf("thrust saturated to %.2f", 0.8)

	if n := logs.Len(); n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
	if got := logs.All()[0].Message; got != "activated with mass 3.50 kg" {
		t.Errorf("unexpected message: %q", got)
	}
}
