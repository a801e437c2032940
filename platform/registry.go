// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package platform keeps the registry of display backends.
//
// Backends register themselves from init:
//
//	func init() {
//	    platform.Register("headless", 10, factory, nil)
//	}
//
// and applications pick one by name or let the registry choose:
//
//	p, err := platform.NewByName("headless", platform.Options{Device: dev})
//	p, err := platform.New(platform.Options{Device: dev})
package platform

import (
	"errors"
	"sort"
	"sync"

	"github.com/gogpu/wsi/alloc"
	"github.com/gogpu/wsi/halgpu"
	"github.com/gogpu/wsi/swapchain"
)

// Options is passed to a backend factory.
type Options struct {
	// Device is the GPU device the swapchain is created on.
	Device *halgpu.Device

	// Allocator backs image memory. Nil lets the backend choose.
	Allocator alloc.Allocator
}

// Factory creates a fresh Platform for one swapchain.
type Factory func(opts Options) (swapchain.Platform, error)

// Entry is a registered backend.
type Entry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	//   - 100: compositor backends (Wayland, DRM/KMS)
	//   - 10: headless
	Priority int

	// Factory creates platform instances.
	Factory Factory

	// Available reports if the backend works on this system.
	Available func() bool
}

var globalRegistry = &Registry{}

// Registry manages registered backends.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry creates a new empty registry.
// Most code should use the global registry via Register and New.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register adds a backend to the global registry.
// If available is nil, the backend is assumed always available.
// Registering a name that already exists replaces the previous entry.
func Register(name string, priority int, factory Factory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a backend from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// List returns all registered backend names sorted by priority.
func List() []string {
	return globalRegistry.List()
}

// Available returns names of all available backends sorted by priority.
func Available() []string {
	return globalRegistry.Available()
}

// New creates a platform with the best available backend.
func New(opts Options) (swapchain.Platform, error) {
	return globalRegistry.New(opts)
}

// NewByName creates a platform with a specific backend.
func NewByName(name string, opts Options) (swapchain.Platform, error) {
	return globalRegistry.NewByName(name, opts)
}

// Register adds a backend to this registry.
func (r *Registry) Register(name string, priority int, factory Factory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*Entry)
	}
	if available == nil {
		available = func() bool { return true }
	}
	r.entries[name] = &Entry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a backend from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// List returns all registered backend names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames(false)
}

// Available returns names of all available backends sorted by priority.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames(true)
}

// Get returns a copy of the entry registered under name.
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	c := *e
	return &c, true
}

// New creates a platform with the best available backend, trying the
// next one when a factory fails.
func (r *Registry) New(opts Options) (swapchain.Platform, error) {
	r.mu.RLock()
	names := r.sortedNames(true)
	r.mu.RUnlock()

	if len(names) == 0 {
		return nil, ErrNoBackendAvailable
	}
	var lastErr error
	for _, name := range names {
		p, err := r.NewByName(name, opts)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// NewByName creates a platform with a specific backend.
func (r *Registry) NewByName(name string, opts Options) (swapchain.Platform, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &BackendNotFoundError{Name: name}
	}
	if !e.Available() {
		return nil, &BackendUnavailableError{Name: name}
	}
	return e.Factory(opts)
}

// sortedNames returns backend names by priority, highest first, and by
// name among equal priorities. Must be called with lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// ErrNoBackendAvailable is returned when no backend is registered or
// available on the current system.
var ErrNoBackendAvailable = errors.New("platform: no backend available")

// BackendNotFoundError indicates a named backend is not registered.
type BackendNotFoundError struct {
	Name string
}

func (e *BackendNotFoundError) Error() string {
	return "platform: backend not found: " + e.Name
}

// BackendUnavailableError indicates a backend exists but is not available.
type BackendUnavailableError struct {
	Name string
}

func (e *BackendUnavailableError) Error() string {
	return "platform: backend unavailable: " + e.Name
}
