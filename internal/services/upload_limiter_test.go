package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUploadLimiter_AcquireRelease(t *testing.T) {
	l := NewUploadLimiter(2, 50*time.Millisecond)

	if l.MaxConcurrent() != 2 {
		t.Errorf("MaxConcurrent() = %d, want 2", l.MaxConcurrent())
	}

	for i := 0; i < 2; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
	}
	if l.ActiveCount() != 2 {
		t.Errorf("ActiveCount() = %d, want 2", l.ActiveCount())
	}

	if err := l.Acquire(context.Background()); !errors.Is(err, ErrTooManyUploads) {
		t.Errorf("Acquire() on full limiter = %v, want ErrTooManyUploads", err)
	}

	l.Release()
	if err := l.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire() after Release error = %v", err)
	}
	l.Release()
	l.Release()

	if l.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d, want 0", l.ActiveCount())
	}
}

func TestUploadLimiter_Defaults(t *testing.T) {
	l := NewUploadLimiter(0, 0)
	if l.MaxConcurrent() != DefaultMaxConcurrentUploads {
		t.Errorf("MaxConcurrent() = %d, want %d", l.MaxConcurrent(), DefaultMaxConcurrentUploads)
	}
	if l.maxWait != DefaultMaxWaitTime {
		t.Errorf("maxWait = %v, want %v", l.maxWait, DefaultMaxWaitTime)
	}
}

func TestUploadLimiter_CanceledContext(t *testing.T) {
	l := NewUploadLimiter(1, time.Second)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() = %v, want context.Canceled", err)
	}
}

func TestUploadLimiter_WaitForDrain(t *testing.T) {
	l := NewUploadLimiter(1, time.Second)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForDrain() = %v, want context.DeadlineExceeded", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Release()
	}()
	if err := l.WaitForDrain(context.Background()); err != nil {
		t.Errorf("WaitForDrain() error = %v", err)
	}
}
