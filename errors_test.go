package wsi

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/wgpu/hal"
)

func TestFromHAL(t *testing.T) {
	other := errors.New("something else")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"device lost", hal.ErrDeviceLost, ErrSurfaceLost},
		{"surface lost", hal.ErrSurfaceLost, ErrSurfaceLost},
		{"out of memory", hal.ErrDeviceOutOfMemory, ErrOutOfMemory},
		{"outdated", hal.ErrSurfaceOutdated, ErrOutOfDate},
		{"timeout", hal.ErrTimeout, ErrTimeout},
		{"wrapped", fmt.Errorf("submit: %w", hal.ErrDeviceLost), ErrSurfaceLost},
		{"unknown", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromHAL(tt.in)
			if !errors.Is(got, tt.want) {
				t.Errorf("FromHAL(%v) = %v, want %v in chain", tt.in, got, tt.want)
			}
			if !errors.Is(got, tt.in) {
				t.Errorf("FromHAL(%v) = %v, lost the original error", tt.in, got)
			}
		})
	}
	if FromHAL(nil) != nil {
		t.Error("FromHAL(nil) != nil")
	}
}

func TestErrorClasses(t *testing.T) {
	if !errors.Is(ErrNotReady, ErrTimeout) {
		t.Error("ErrNotReady does not match ErrTimeout")
	}
	if errors.Is(ErrTimeout, ErrNotReady) {
		t.Error("ErrTimeout matches ErrNotReady")
	}
	for _, err := range []error{ErrSurfaceLost, ErrOutOfDate, fmt.Errorf("present: %w", ErrOutOfDate)} {
		if !IsFatal(err) {
			t.Errorf("IsFatal(%v) = false, want true", err)
		}
	}
	for _, err := range []error{nil, ErrTimeout, ErrNotReady, ErrImageNotAcquired, ErrIncomplete} {
		if IsFatal(err) {
			t.Errorf("IsFatal(%v) = true, want false", err)
		}
	}
}
