/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package channel

// Tomb tracks the lifecycle of a single background worker.
// Stop signals the worker to finish and blocks until Done is called.
type Tomb struct {
	stopping chan struct{}
	done     chan struct{}
}

// NewTomb creates a new Tomb.
func NewTomb() *Tomb {
	return &Tomb{
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Stopping returns a channel that is closed when Stop has been requested.
func (t *Tomb) Stopping() <-chan struct{} {
	return t.stopping
}

// Done marks the worker as finished. It must be called exactly once.
func (t *Tomb) Done() {
	close(t.done)
}

// Stop requests the worker to stop and waits until it has finished.
func (t *Tomb) Stop() {
	close(t.stopping)
	<-t.done
}
