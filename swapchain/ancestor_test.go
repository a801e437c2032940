package swapchain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/wsi"
)

// newDescendant creates a swapchain replacing old, destroyed at cleanup.
func newDescendant(t *testing.T, old *Swapchain, count int) (*Swapchain, *testPlatform, *testDevice) {
	t.Helper()
	p := newTestPlatform()
	dev := newTestDevice()
	info := testInfo(p, count)
	info.OldSwapchain = old
	sc, err := New(dev, info)
	if err != nil {
		t.Fatalf("New(descendant) error = %v", err)
	}
	t.Cleanup(sc.Destroy)
	return sc, p, dev
}

func TestDeprecateReleasesFreeImages(t *testing.T) {
	a, pa, _ := newTestSwapchain(t, 3)

	first := mustAcquire(t, a)
	mustPresent(t, a, first)
	second := mustAcquire(t, a)
	mustPresent(t, a, second)
	pa.waitFlips(t, 2)

	b, _, _ := newDescendant(t, a, 3)

	if got := a.Status(second); got != StatusPresented {
		t.Errorf("Status(%d) = %v, want Presented", second, got)
	}
	counts := statusCounts(a)
	if counts[StatusInvalid] != 2 || counts[StatusFree] != 0 {
		t.Errorf("ancestor status counts = %v, want 2 invalid and 0 free", counts)
	}
	if got := pa.destroyedCount(); got != 2 {
		t.Errorf("ancestor destroyed images = %d, want 2", got)
	}
	if !a.Retired() || a.Descendant() != b || b.Ancestor() != a {
		t.Error("ancestor and descendant are not linked")
	}
	if _, err := a.Acquire(context.Background(), 0, nil, nil); !errors.Is(err, wsi.ErrOutOfDate) {
		t.Errorf("Acquire() on retired swapchain error = %v, want ErrOutOfDate", err)
	}
}

func TestDeprecateKeepsAcquiredImages(t *testing.T) {
	a, _, _ := newTestSwapchain(t, 3)
	held := mustAcquire(t, a)

	newDescendant(t, a, 3)

	if got := a.Status(held); got != StatusAcquired {
		t.Errorf("Status(%d) = %v, want Acquired", held, got)
	}
	if got := statusCounts(a)[StatusInvalid]; got != 2 {
		t.Errorf("invalid images = %d, want 2", got)
	}
}

func TestDescendantFailureLeavesAncestorAlone(t *testing.T) {
	a, pa, _ := newTestSwapchain(t, 3)

	p := newTestPlatform()
	p.failAt = 1
	info := testInfo(p, 3)
	info.OldSwapchain = a
	if _, err := New(newTestDevice(), info); !errors.Is(err, wsi.ErrOutOfMemory) {
		t.Fatalf("New() error = %v, want ErrOutOfMemory", err)
	}

	if a.Retired() {
		t.Error("failed descendant retired its ancestor")
	}
	if got := pa.destroyedCount(); got != 0 {
		t.Errorf("ancestor destroyed images = %d, want 0", got)
	}
	mustAcquire(t, a)
}

// TestDescendantFirstPresentWaitsForAncestor builds a three-image ancestor
// with two frames in flight, replaces it and checks that the descendant's
// first flip waits until the ancestor is down to one outstanding image.
func TestDescendantFirstPresentWaitsForAncestor(t *testing.T) {
	a, pa, da := newTestSwapchain(t, 3)
	da.q.setHold(true)
	mustPresent(t, a, mustAcquire(t, a))
	mustPresent(t, a, mustAcquire(t, a))

	b, pb, _ := newDescendant(t, a, 3)
	mustPresent(t, b, mustAcquire(t, b))

	select {
	case idx := <-pb.flipped:
		t.Fatalf("descendant flipped image %d before the ancestor drained", idx)
	case <-time.After(50 * time.Millisecond):
	}
	if b.started.Fired() {
		t.Fatal("start-present fired before the ancestor drained")
	}

	da.q.release(nil)
	pa.waitFlips(t, 2)
	pb.waitFlips(t, 1)

	if !b.started.Fired() {
		t.Error("start-present not fired after the first flip")
	}
}

func TestAncestorTeardownAfterDescendantStarted(t *testing.T) {
	a, pa, da := newTestSwapchain(t, 3)
	da.q.setHold(true)
	mustPresent(t, a, mustAcquire(t, a))
	mustPresent(t, a, mustAcquire(t, a))

	b, pb, _ := newDescendant(t, a, 3)
	mustPresent(t, b, mustAcquire(t, b))
	da.q.release(nil)
	pa.waitFlips(t, 2)
	pb.waitFlips(t, 1)

	// The descendant already took the ancestor's free units. A second
	// local drain would block forever.
	done := make(chan struct{})
	go func() {
		a.Destroy()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ancestor teardown waited again after start-present fired")
	}

	if b.Ancestor() != nil {
		t.Error("descendant still points at the destroyed ancestor")
	}
	if got := pa.destroyedCount(); got != 3 {
		t.Errorf("ancestor destroyed images = %d, want 3", got)
	}
	mustPresent(t, b, mustAcquire(t, b))
	pb.waitFlips(t, 1)
}

func TestAncestorTeardownDrainsWhileDescendantIdle(t *testing.T) {
	a, pa, da := newTestSwapchain(t, 3)
	da.q.setHold(true)
	mustPresent(t, a, mustAcquire(t, a))
	mustPresent(t, a, mustAcquire(t, a))

	b, _, _ := newDescendant(t, a, 3)

	done := make(chan struct{})
	go func() {
		a.Destroy()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("ancestor teardown returned with images in flight")
	case <-time.After(50 * time.Millisecond):
	}

	da.q.release(nil)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ancestor teardown did not finish after draining")
	}
	if got := len(pa.flipOrder()); got != 2 {
		t.Errorf("ancestor flips = %d, want 2", got)
	}
	if b.Ancestor() != nil {
		t.Error("descendant still points at the destroyed ancestor")
	}
}

func TestPresentAfterDescendantStarted(t *testing.T) {
	a, pa, _ := newTestSwapchain(t, 3)
	held := mustAcquire(t, a)

	b, pb, _ := newDescendant(t, a, 3)
	mustPresent(t, b, mustAcquire(t, b))
	pb.waitFlips(t, 1)

	err := a.Present(nil, nil, held)
	if !errors.Is(err, wsi.ErrOutOfDate) {
		t.Fatalf("Present() error = %v, want ErrOutOfDate", err)
	}
	eventually(t, "superseded image released", func() bool {
		return a.Status(held) == StatusInvalid
	})
	if got := len(pa.flipOrder()); got != 0 {
		t.Errorf("ancestor flips = %d, want 0", got)
	}
	if got := pa.destroyedCount(); got != 3 {
		t.Errorf("ancestor destroyed images = %d, want 3", got)
	}
}

func TestPresentBeforeDescendantStarted(t *testing.T) {
	a, pa, _ := newTestSwapchain(t, 3)
	held := mustAcquire(t, a)

	newDescendant(t, a, 3)

	if err := a.Present(nil, nil, held); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	pa.waitFlips(t, 1)
}

func TestDescendantTeardownClearsLink(t *testing.T) {
	a, _, _ := newTestSwapchain(t, 2)

	info := testInfo(newTestPlatform(), 2)
	info.OldSwapchain = a
	b, err := New(newTestDevice(), info)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b.Destroy()

	if a.Descendant() != nil {
		t.Error("ancestor still points at the destroyed descendant")
	}
}

// startDescendantFlip makes a, after two completed flips, the ancestor of a
// descendant whose first image is queued behind a held fence.
func startDescendantFlip(t *testing.T) (a, b *Swapchain, pa *testPlatform, db *testDevice) {
	t.Helper()
	a, pa, _ = newTestSwapchain(t, 3)
	mustPresent(t, a, mustAcquire(t, a))
	mustPresent(t, a, mustAcquire(t, a))
	pa.waitFlips(t, 2)

	b, _, db = newDescendant(t, a, 3)
	db.q.setHold(true)
	mustPresent(t, b, mustAcquire(t, b))
	return a, b, pa, db
}

func destroyAsync(sc *Swapchain) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		sc.Destroy()
		close(done)
	}()
	return done
}

func TestAncestorTeardownAfterDescendantFenceFailure(t *testing.T) {
	a, b, pa, db := startDescendantFlip(t)

	done := destroyAsync(a)
	db.q.release(errors.New("device lost"))
	eventually(t, "descendant invalidated", func() bool { return !b.Valid() })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("ancestor teardown hung: started fired = %v, descendant valid = %v",
			b.started.Fired(), b.Valid())
	}
	if b.started.Fired() {
		t.Error("start-present fired although no image was flipped")
	}
	if got := pa.destroyedCount(); got != 3 {
		t.Errorf("ancestor destroyed images = %d, want 3", got)
	}
	if _, err := b.Acquire(context.Background(), 0, nil, nil); !errors.Is(err, wsi.ErrSurfaceLost) {
		t.Errorf("Acquire() on failed descendant error = %v, want ErrSurfaceLost", err)
	}
}

func TestAncestorTeardownAfterDescendantDestroyedBeforeFlip(t *testing.T) {
	a, b, pa, _ := startDescendantFlip(t)

	done := destroyAsync(a)
	select {
	case <-done:
		t.Fatal("ancestor teardown returned while the descendant was about to flip")
	case <-time.After(50 * time.Millisecond):
	}

	// The held fence never signals; teardown cancels the wait.
	b.Destroy()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ancestor teardown hung after the descendant was destroyed")
	}
	if got := pa.destroyedCount(); got != 3 {
		t.Errorf("ancestor destroyed images = %d, want 3", got)
	}
}
