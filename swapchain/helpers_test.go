package swapchain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
)

// testFence is a host fence the tests signal by hand or through testQueue.
type testFence struct {
	mu  sync.Mutex
	ch  chan struct{}
	err error
}

func newTestFence() *testFence {
	return &testFence{ch: make(chan struct{})}
}

func (f *testFence) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.ch:
		f.ch = make(chan struct{})
	default:
	}
	f.err = nil
	return nil
}

func (f *testFence) Wait(ctx context.Context) error {
	f.mu.Lock()
	ch := f.ch
	f.mu.Unlock()
	select {
	case <-ch:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *testFence) signal(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.ch:
	default:
		f.err = err
		close(f.ch)
	}
}

func (f *testFence) signaled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}

type testSemaphore struct {
	mu       sync.Mutex
	signaled bool
}

func (s *testSemaphore) isSignaled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signaled
}

// testQueue completes submissions immediately unless hold is set, in which
// case fences wait until release.
type testQueue struct {
	mu      sync.Mutex
	hold    bool
	held    []*testFence
	submits int
	idles   int
}

func (q *testQueue) Submit(waits, signals []Semaphore, fence Fence) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.submits++
	for _, s := range signals {
		ts := s.(*testSemaphore)
		ts.mu.Lock()
		ts.signaled = true
		ts.mu.Unlock()
	}
	if fence == nil {
		return nil
	}
	f := fence.(*testFence)
	if q.hold {
		q.held = append(q.held, f)
		return nil
	}
	f.signal(nil)
	return nil
}

func (q *testQueue) WaitIdle() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.idles++
	return nil
}

func (q *testQueue) setHold(hold bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.hold = hold
}

// release signals every held fence in submission order and stops holding.
func (q *testQueue) release(err error) {
	q.mu.Lock()
	held := q.held
	q.held = nil
	q.hold = false
	q.mu.Unlock()
	for _, f := range held {
		f.signal(err)
	}
}

func (q *testQueue) submitCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.submits
}

type testDevice struct {
	q *testQueue
}

func newTestDevice() *testDevice {
	return &testDevice{q: &testQueue{}}
}

func (d *testDevice) Queue() Queue { return d.q }

type testHandle struct {
	id int
}

// testPlatform records what the swapchain asks of it.
type testPlatform struct {
	mu         sync.Mutex
	initErr    error
	failAt     int
	presentErr error
	inits      int
	created    int
	destroyed  int
	current    int
	flips      []int
	flipped    chan int
}

func newTestPlatform() *testPlatform {
	return &testPlatform{failAt: -1, current: -1, flipped: make(chan int, 256)}
}

func (p *testPlatform) Init(dev Device, info *CreateInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inits++
	return p.initErr
}

func (p *testPlatform) CreateImage(info *CreateInfo, img *Image) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.created == p.failAt {
		return errors.New("no memory for image")
	}
	img.Handle = &testHandle{id: p.created}
	img.Fence = newTestFence()
	p.created++
	return nil
}

func (p *testPlatform) DestroyImage(img *Image) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if img.Handle == nil {
		return
	}
	img.Handle = nil
	img.Fence = nil
	p.destroyed++
}

func (p *testPlatform) PresentImage(sc Unpresenter, index int) error {
	p.mu.Lock()
	if p.presentErr != nil {
		err := p.presentErr
		p.mu.Unlock()
		return err
	}
	prev := p.current
	p.current = index
	p.flips = append(p.flips, index)
	p.mu.Unlock()

	if prev >= 0 {
		sc.UnpresentImage(prev)
	}
	p.flipped <- index
	return nil
}

func (p *testPlatform) destroyedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

func (p *testPlatform) flipOrder() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.flips...)
}

// waitFlips waits until n more images were flipped.
func (p *testPlatform) waitFlips(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-p.flipped:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for flip %d of %d", i+1, n)
		}
	}
}

func testInfo(p Platform, count int) *CreateInfo {
	return &CreateInfo{
		Platform:      p,
		MinImageCount: count,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Extent:        gputypes.NewExtent2D(64, 64),
		Usage:         gputypes.TextureUsageRenderAttachment,
		AlphaMode:     gputypes.CompositeAlphaModeOpaque,
		PresentMode:   gputypes.PresentModeFifo,
	}
}

// newTestSwapchain creates a swapchain destroyed at cleanup.
func newTestSwapchain(t *testing.T, count int) (*Swapchain, *testPlatform, *testDevice) {
	t.Helper()
	p := newTestPlatform()
	dev := newTestDevice()
	sc, err := New(dev, testInfo(p, count))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(sc.Destroy)
	return sc, p, dev
}

func mustAcquire(t *testing.T, sc *Swapchain) int {
	t.Helper()
	idx, err := sc.Acquire(context.Background(), time.Second, nil, nil)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	return idx
}

func mustPresent(t *testing.T, sc *Swapchain, idx int) {
	t.Helper()
	if err := sc.Present(nil, nil, idx); err != nil {
		t.Fatalf("Present(%d) error = %v", idx, err)
	}
}

// eventually polls cond until it holds or two seconds pass.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// statusCounts returns how many images are in each status.
func statusCounts(sc *Swapchain) map[Status]int {
	counts := make(map[Status]int)
	for i := 0; i < sc.ImageCount(); i++ {
		counts[sc.Status(i)]++
	}
	return counts
}
