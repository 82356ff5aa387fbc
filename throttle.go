// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var errTaskTimeout = errors.New("task deadline exceeded")

type throttle struct {
	Max       int
	wg        sync.WaitGroup
	ch        chan bool
	err       atomic.Value
	setupOnce sync.Once
	errorOnce sync.Once
}

func (t *throttle) Acquire() {
	t.setupOnce.Do(func() { t.ch = make(chan bool, t.Max) })
	t.wg.Add(1)
	t.ch <- true
}

func (t *throttle) Release() {
	t.wg.Done()
	<-t.ch
}

func (t *throttle) Report(err error) {
	if err != nil {
		t.errorOnce.Do(func() { t.err.Store(err) })
	}
}

func (t *throttle) Err() error {
	err, _ := t.err.Load().(error)
	return err
}

func (t *throttle) Wait() error {
	t.wg.Wait()
	return t.Err()
}

// Go acquires a slot and runs task on a new goroutine, delivering its
// error to done. With a nonzero deadline the task is abandoned once the
// deadline expires and done receives errTaskTimeout instead; the
// abandoned task keeps its slot until it actually returns, so Wait
// still waits for it.
func (t *throttle) Go(deadline time.Duration, task func() error, done func(error)) {
	t.Acquire()
	go func() {
		defer t.Release()
		result := make(chan error, 1)
		go func() { result <- task() }()
		if deadline <= 0 {
			done(<-result)
			return
		}
		timer := time.NewTimer(deadline)
		defer timer.Stop()
		select {
		case err := <-result:
			done(err)
		case <-timer.C:
			done(errTaskTimeout)
			<-result
		}
	}()
}
