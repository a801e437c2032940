// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package surface owns the swapchains of one presentation surface.
//
// Recreating a swapchain, for example after a resize, produces a chain of
// swapchains on the same surface: the new one (the descendant) takes the
// display over from the old one (the ancestor). Surface keeps that chain,
// passes the current swapchain as the ancestor of the next one and makes
// sure only one replacement is in flight at a time.
//
// # Usage
//
//	s := surface.New(dev, surface.WithPlatform("headless"))
//	defer s.Close()
//
//	sc, err := s.CreateSwapchain(info)
//	// ... render ...
//
//	// On resize:
//	info.Extent = gputypes.NewExtent2D(w, h)
//	next, err := s.CreateSwapchain(info)
//	s.DestroySwapchain(sc)
package surface
