// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"errors"
	"sync/atomic"
	"time"

	"gopkg.in/check.v1"
)

type throttleSuite struct{}

var _ = check.Suite(&throttleSuite{})

func (s *throttleSuite) TestGoCollectsErrors(c *check.C) {
	pool := throttle{Max: 2}
	errs := make([]error, 4)
	fail := errors.New("boom")
	for i := 0; i < 4; i++ {
		i := i
		pool.Go(0, func() error {
			if i == 2 {
				return fail
			}
			return nil
		}, func(err error) {
			errs[i] = err
		})
	}
	c.Check(pool.Wait(), check.IsNil) // done callbacks consume the errors
	for i, err := range errs {
		if i == 2 {
			c.Check(err, check.Equals, fail)
		} else {
			c.Check(err, check.IsNil)
		}
	}
}

func (s *throttleSuite) TestGoDeadline(c *check.C) {
	pool := throttle{Max: 1}
	var got atomic.Value
	release := make(chan bool)
	pool.Go(time.Millisecond, func() error {
		<-release
		return nil
	}, func(err error) {
		got.Store(err)
		close(release)
	})
	c.Check(pool.Wait(), check.IsNil)
	c.Check(got.Load(), check.Equals, errTaskTimeout)
}

func (s *throttleSuite) TestMaxConcurrent(c *check.C) {
	pool := throttle{Max: 3}
	var running, peak int64
	for i := 0; i < 20; i++ {
		pool.Go(0, func() error {
			n := atomic.AddInt64(&running, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&running, -1)
			return nil
		}, func(error) {})
	}
	c.Check(pool.Wait(), check.IsNil)
	if p := atomic.LoadInt64(&peak); p > 3 {
		c.Errorf("observed %d concurrent tasks, limit 3", p)
	}
}
