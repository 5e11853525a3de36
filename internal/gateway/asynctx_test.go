package gateway

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

var errOverflow = errors.New("overflow")

func TestAsyncTx_Success(t *testing.T) {
	var sent atomic.Int64
	var after atomic.Int64
	ax := NewAsyncTx(context.Background(), 4, func(fr []byte) {
		sent.Add(1)
	}, Hooks{OnAfter: func() { after.Add(1) }})
	defer ax.Close()
	for i := 0; i < 3; i++ {
		if err := ax.SendFrame([]byte{byte(i)}); err != nil {
			t.Fatalf("unexpected send error: %v", err)
		}
	}
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) && sent.Load() < 3 {
		time.Sleep(5 * time.Millisecond)
	}
	if sent.Load() != 3 || after.Load() != 3 {
		t.Fatalf("expected 3 sent & after, got sent=%d after=%d", sent.Load(), after.Load())
	}
}

func TestAsyncTx_OverflowDropsNonFallbackImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var drops atomic.Int64
	ax := NewAsyncTx(ctx, 1, func(fr []byte) { time.Sleep(150 * time.Millisecond) }, Hooks{OnDrop: func() error { drops.Add(1); return errOverflow }})
	defer ax.Close()
	if err := ax.SendFrame([]byte{0x01}); err != nil {
		t.Fatalf("unexpected error enqueue first: %v", err)
	}
	start := time.Now()
	if err := ax.SendFrame([]byte{0x02}); !errors.Is(err, errOverflow) {
		t.Fatalf("expected overflow error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > fallbackDeliveryGrace {
		t.Fatalf("non-fallback frame waited for the fallback grace period: %s", elapsed)
	}
	if drops.Load() != 1 {
		t.Fatalf("expected 1 drop, got %d", drops.Load())
	}
}

func TestAsyncTx_FallbackFrameWaitsOutGracePeriodBeforeDrop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var drops atomic.Int64
	ax := NewAsyncTx(ctx, 1, func(fr []byte) { time.Sleep(time.Second) }, Hooks{OnDrop: func() error { drops.Add(1); return errOverflow }})
	defer ax.Close()

	fallback := fallbackFrameFixture(t)
	if err := ax.SendFrame(fallback); err != nil {
		t.Fatalf("unexpected error enqueue first: %v", err)
	}
	start := time.Now()
	err := ax.SendFrame(fallback)
	elapsed := time.Since(start)
	if !errors.Is(err, errOverflow) {
		t.Fatalf("expected overflow error after grace period, got %v", err)
	}
	if elapsed < fallbackDeliveryGrace {
		t.Fatalf("fallback frame was dropped before its grace period elapsed: %s", elapsed)
	}
	if drops.Load() != 1 {
		t.Fatalf("expected 1 drop, got %d", drops.Load())
	}
}

func TestAsyncTx_DepthAndCap(t *testing.T) {
	ax := NewAsyncTx(context.Background(), 4, func(fr []byte) { time.Sleep(50 * time.Millisecond) }, Hooks{})
	defer ax.Close()
	if ax.Cap() != 4 {
		t.Fatalf("Cap() = %d, want 4", ax.Cap())
	}
	if err := ax.SendFrame([]byte{0x01}); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	if d := ax.Depth(); d > 1 {
		t.Fatalf("Depth() = %d, want <= 1", d)
	}
}

func TestAsyncTx_Close(t *testing.T) {
	var sent atomic.Int64
	ax := NewAsyncTx(context.Background(), 2, func(fr []byte) { sent.Add(1) }, Hooks{})
	_ = ax.SendFrame([]byte{0x01})
	ax.Close()
	countAfterClose := sent.Load()
	_ = ax.SendFrame([]byte{0x02})
	time.Sleep(50 * time.Millisecond)
	if sent.Load() != countAfterClose {
		t.Fatalf("frame processed after close: before=%d after=%d", countAfterClose, sent.Load())
	}
}

func TestAsyncTx_SendAfterClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tx := NewAsyncTx(ctx, 2, func(fr []byte) {}, Hooks{})
	tx.Close()
	if err := tx.SendFrame([]byte{0x01}); !errors.Is(err, ErrAsyncTxClosed) {
		t.Fatalf("expected ErrAsyncTxClosed, got %v", err)
	}
}

func TestAsyncTx_CloseConcurrentSend(t *testing.T) {
	for i := 0; i < 100; i++ {
		ax := NewAsyncTx(context.Background(), 1, func(fr []byte) {}, Hooks{})
		done := make(chan error, 1)
		go func() {
			done <- ax.SendFrame([]byte{0x01})
		}()
		time.Sleep(1 * time.Millisecond)
		ax.Close()
		if err := <-done; err != nil && !errors.Is(err, ErrAsyncTxClosed) {
			t.Fatalf("iteration %d: unexpected send error %v", i, err)
		}
	}
}
