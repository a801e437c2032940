// Command wsidemo drives a swapchain on the headless platform and
// recreates it halfway through, the way a window resize would.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/wsi"
	"github.com/gogpu/wsi/alloc"
	"github.com/gogpu/wsi/halgpu"
	_ "github.com/gogpu/wsi/platform/headless"
	"github.com/gogpu/wsi/surface"
	"github.com/gogpu/wsi/swapchain"
)

func main() {
	var (
		config   = flag.String("config", "", "YAML config file")
		frames   = flag.Int("frames", 120, "frames to present")
		recreate = flag.Int("recreate-at", 60, "frame at which the swapchain is recreated (0 disables)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *config, *frames, *recreate); err != nil {
		log.Fatalf("wsidemo: %v", err)
	}
}

func run(ctx context.Context, path string, frames, recreateAt int) error {
	cfg := wsi.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = wsi.LoadConfig(path); err != nil {
			return err
		}
	}
	level, err := wsi.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	wsi.SetLogger(logger)

	format, err := wsi.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	mode, err := wsi.ParsePresentMode(cfg.PresentMode)
	if err != nil {
		return err
	}

	dev, cleanup, err := openDevice()
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := alloc.New(cfg.Allocator)
	if err != nil {
		return err
	}
	logger.Info("allocator selected", "name", a.Name(), "available", alloc.Available())

	surf := surface.New(dev, surface.WithPlatform(cfg.Platform), surface.WithAllocator(a))
	defer surf.Close()

	info := &swapchain.CreateInfo{
		MinImageCount: cfg.ImageCount,
		Format:        format,
		Extent:        cfg.Extent(),
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		AlphaMode:     gputypes.CompositeAlphaModeOpaque,
		PresentMode:   mode,
	}
	sc, err := surf.CreateSwapchain(info)
	if err != nil {
		return err
	}

	var g errgroup.Group
	defer g.Wait() //nolint:errcheck // checked below on success

	start := time.Now()
	for frame := 0; frame < frames; frame++ {
		if frame > 0 && frame == recreateAt {
			info.Extent = gputypes.NewExtent2D(cfg.Width*2, cfg.Height*2)
			next, err := surf.CreateSwapchain(info)
			if err != nil {
				return fmt.Errorf("recreate swapchain: %w", err)
			}
			old := sc
			sc = next
			// The old swapchain drains once the new one starts presenting.
			g.Go(func() error { return surf.DestroySwapchain(old) })
		}

		if err := presentFrame(ctx, dev, sc); err != nil {
			if errors.Is(err, wsi.ErrOutOfDate) {
				sc = surf.Current()
				continue
			}
			return fmt.Errorf("frame %d: %w", frame, err)
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("done",
		"frames", frames,
		"elapsed", time.Since(start),
		"swapchains", len(surf.Swapchains()))
	return nil
}

// presentFrame acquires an image, lets the queue wait for it and presents
// it back. Rendering would be recorded between the two calls.
func presentFrame(ctx context.Context, dev *halgpu.Device, sc *swapchain.Swapchain) error {
	acquired := dev.NewSemaphore()
	index, err := sc.Acquire(ctx, time.Second, acquired, nil)
	if err != nil {
		return err
	}
	return sc.Present(nil, []swapchain.Semaphore{acquired}, index)
}

// openDevice opens the first adapter of the noop HAL backend.
func openDevice() (*halgpu.Device, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, errors.New("no adapter")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("open adapter: %w", err)
	}
	dev := halgpu.NewDevice(open.Device, open.Queue)
	return dev, func() {
		dev.Close()
		open.Device.Destroy()
		instance.Destroy()
	}, nil
}
