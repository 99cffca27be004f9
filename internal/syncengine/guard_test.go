package syncengine

import (
	"testing"
	"time"
)

func TestEchoGuard_InactiveByDefault(t *testing.T) {
	g := NewEchoGuard()
	if g.Active() {
		t.Error("expected new guard to be inactive")
	}
}

func TestEchoGuard_ActiveWithinWindow(t *testing.T) {
	g := NewEchoGuard()

	g.Suppress(50 * time.Millisecond)
	if !g.Active() {
		t.Error("expected guard active immediately after Suppress")
	}

	time.Sleep(100 * time.Millisecond)
	if g.Active() {
		t.Error("expected guard inactive after window elapsed")
	}
}

func TestEchoGuard_SuppressExtendsWindow(t *testing.T) {
	g := NewEchoGuard()

	g.Suppress(30 * time.Millisecond)
	g.Suppress(150 * time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	if !g.Active() {
		t.Error("expected second Suppress to extend the window")
	}
}

func TestEchoGuard_ShorterSuppressDoesNotShrink(t *testing.T) {
	g := NewEchoGuard()

	g.Suppress(150 * time.Millisecond)
	g.Suppress(10 * time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	if !g.Active() {
		t.Error("expected window to keep the later deadline")
	}
}
