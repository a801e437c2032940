// Package halgpu adapts a gogpu/wgpu HAL device and queue to the GPU
// interfaces of package swapchain.
//
// HAL queues have no semaphores and no fences that a submission can signal.
// halgpu emulates both on the host: a single worker goroutine per Device
// takes submissions in order, waits for their semaphores, submits an empty
// batch to the HAL queue and polls PollCompleted until the batch has
// retired. Because a HAL queue completes submissions in order, the batch
// retiring means every earlier submission has completed as well, which is
// exactly the ordering a present fence needs.
package halgpu
