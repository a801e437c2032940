// Package wsi provides the presentation-engine core of a window-system
// integration layer for the GoGPU ecosystem.
//
// # Overview
//
// A swapchain owns a ring of presentable images. It hands images out to a
// rendering client, waits for the GPU to finish each one and flips them to
// the display in the order they were presented. When a swapchain is
// recreated on the same surface the old one (the ancestor) and the new one
// (the descendant) hand the display over without tearing down images that
// are still on screen.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/wsi/halgpu"
//	    "github.com/gogpu/wsi/platform/headless"
//	    "github.com/gogpu/wsi/swapchain"
//	)
//
//	dev := halgpu.NewDevice(halDevice, halQueue)
//	defer dev.Close()
//
//	sc, err := swapchain.New(dev, &swapchain.CreateInfo{
//	    Platform:      headless.New(dev),
//	    MinImageCount: 3,
//	    Format:        gputypes.TextureFormatBGRA8Unorm,
//	    Extent:        gputypes.NewExtent2D(800, 600),
//	    PresentMode:   gputypes.PresentModeFifo,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sc.Destroy()
//
//	idx, err := sc.Acquire(ctx, wsi.InfiniteTimeout, nil, nil)
//	// ... render into image idx ...
//	err = sc.Present(nil, renderDone, idx)
//
// # Architecture
//
// The module is organized into:
//   - wsi: errors, logging, file configuration
//   - swapchain: the image state machine and its flip goroutine
//   - halgpu: queue, fence and semaphore on top of gogpu/wgpu/hal
//   - platform, platform/headless: platform backends and their registry
//   - alloc: DMA-heap style buffer allocators
//   - surface: owner of the swapchain chain of one surface
//
// # Logging
//
// wsi is silent by default. See SetLogger.
package wsi

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
