// Package sema holds the host-side synchronization primitives of a
// swapchain: the free-image counter, the page-flip signal and the one-shot
// start-present event.
package sema
