// Copyright 2024 The Mali GPU Governor Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	"sync"
	"time"

	goxrate "golang.org/x/time/rate"
)

// Rate specifies a maximum per-message logging rate.
type Rate struct {
	// Limit is the rate limit.
	Limit goxrate.Limit
	// Burst is the number of allowed bursts.
	Burst int
	// Window is the optional tracked message window size.
	Window int
}

const (
	// DefaultWindow is the default message window size for rate limiting.
	DefaultWindow = 256
	// MinimumWindow is the smallest message window size for rate limiting.
	MinimumWindow = 32
)

// Every defines a rate limit for the given interval.
func Every(interval time.Duration) goxrate.Limit {
	return goxrate.Every(interval)
}

// Interval returns a Rate allowing one burst per the given interval.
func Interval(interval time.Duration) Rate {
	return Rate{Limit: Every(interval), Burst: 1}
}

// ratelimited implements rate-limited logging.
type ratelimited struct {
	Logger
	sync.Mutex
	rate    Rate
	window  []string
	limits  map[string]*goxrate.Limiter
	dropped map[string]int
}

// RateLimit returns a rate-limited version of the given logger. Messages are
// limited per format string, not per formatted content: the governor ticks up
// to 125 times a second and a recurring failure tends to repeat with varying
// detail, such as an errno that flips between calls. When a suppressed format
// next gets through, the emitted message carries a count of the occurrences
// dropped since.
func RateLimit(log Logger, rate Rate) Logger {
	switch {
	case rate.Window == 0:
		rate.Window = DefaultWindow
	case rate.Window < MinimumWindow:
		rate.Window = MinimumWindow
	}
	if rate.Burst < 1 {
		rate.Burst = 1
	}
	return &ratelimited{
		Logger:  log,
		rate:    rate,
		limits:  make(map[string]*goxrate.Limiter),
		dropped: make(map[string]int),
		window:  make([]string, 0, rate.Window),
	}
}

func (rl *ratelimited) Debug(format string, args ...interface{}) {
	if msg, ok := rl.filter(format, args...); ok {
		rl.Logger.Debug("<rate-limited> %s", msg)
	}
}

func (rl *ratelimited) Info(format string, args ...interface{}) {
	if msg, ok := rl.filter(format, args...); ok {
		rl.Logger.Info("<rate-limited> %s", msg)
	}
}

func (rl *ratelimited) Warn(format string, args ...interface{}) {
	if msg, ok := rl.filter(format, args...); ok {
		rl.Logger.Warn("<rate-limited> %s", msg)
	}
}

func (rl *ratelimited) Error(format string, args ...interface{}) {
	if msg, ok := rl.filter(format, args...); ok {
		rl.Logger.Error("<rate-limited> %s", msg)
	}
}

// filter checks the format string against its limiter. The returned message
// is annotated with the number of occurrences suppressed since the format
// last got through.
func (rl *ratelimited) filter(format string, args ...interface{}) (string, bool) {
	rl.Lock()
	defer rl.Unlock()

	lim, ok := rl.limits[format]
	if !ok {
		if len(rl.window) == cap(rl.window) {
			oldest := rl.window[0]
			delete(rl.limits, oldest)
			delete(rl.dropped, oldest)
			rl.window = rl.window[1:]
		}
		rl.window = append(rl.window, format)
		lim = goxrate.NewLimiter(rl.rate.Limit, rl.rate.Burst)
		rl.limits[format] = lim
	}

	if !lim.Allow() {
		rl.dropped[format]++
		return "", false
	}

	msg := fmt.Sprintf(format, args...)
	if n := rl.dropped[format]; n > 0 {
		msg = fmt.Sprintf("%s (suppressed %d earlier occurrences)", msg, n)
		rl.dropped[format] = 0
	}

	return msg, true
}
