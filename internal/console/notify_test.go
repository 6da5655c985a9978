package console

import (
	"testing"
	"time"
)

func waitExpired(t *testing.T, toast *Toast, within time.Duration) uint64 {
	t.Helper()
	select {
	case gen := <-toast.Expired():
		return gen
	case <-time.After(within):
		t.Fatal("toast did not expire in time")
	}
	return 0
}

func TestToast_ShowsAndExpires(t *testing.T) {
	toast := NewToast(20 * time.Millisecond)
	defer toast.Stop()

	toast.Notify("hello")
	if msg, ok := toast.Current(); !ok || msg != "hello" {
		t.Fatalf("Current() = %q, %v", msg, ok)
	}

	gen := waitExpired(t, toast, time.Second)
	if !toast.Dismiss(gen) {
		t.Error("Dismiss of current generation returned false")
	}
	if _, ok := toast.Current(); ok {
		t.Error("message still visible after dismissal")
	}
}

func TestToast_NewMessageSupersedes(t *testing.T) {
	toast := NewToast(30 * time.Millisecond)
	defer toast.Stop()

	toast.Notify("first")
	first := toast.Generation()
	toast.Notify("second")

	if msg, _ := toast.Current(); msg != "second" {
		t.Errorf("Current() = %q, want second", msg)
	}
	if toast.Dismiss(first) {
		t.Error("stale generation dismissed the newer message")
	}
	if msg, ok := toast.Current(); !ok || msg != "second" {
		t.Errorf("newer message lost: %q, %v", msg, ok)
	}

	gen := waitExpired(t, toast, time.Second)
	if gen != toast.Generation() {
		t.Errorf("expired generation = %d, want %d", gen, toast.Generation())
	}
	if !toast.Dismiss(gen) {
		t.Error("current generation not dismissed")
	}
}

func TestToast_StopReleasesWaiters(t *testing.T) {
	toast := NewToast(time.Hour)
	toast.Notify("pending")
	toast.Stop()
	toast.Stop()

	select {
	case <-toast.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Stop")
	}
}

func TestToast_DefaultDelay(t *testing.T) {
	if NewToast(0).delay != DefaultNotifyDelay {
		t.Error("zero delay should fall back to the default")
	}
}
