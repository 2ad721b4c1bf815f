//go:build !production

package room

import (
	"slices"
	"sync"
	"time"
)

// ManualScheduler 手动推进时间的调度器，用于确定性测试
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	s        *ManualScheduler
	seq      int
	due      time.Duration
	interval time.Duration // 0 表示一次性
	fn       func()
	stopped  bool
}

// NewManualScheduler 创建手动调度器
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) After(d time.Duration, fn func()) Timer {
	return s.add(d, 0, fn)
}

func (s *ManualScheduler) Every(d time.Duration, fn func()) Timer {
	return s.add(d, d, fn)
}

func (s *ManualScheduler) add(d, interval time.Duration, fn func()) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{s: s, seq: s.seq, due: s.now + d, interval: interval, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// Advance 推进时间并按到期顺序触发计时器
// 回调在锁外执行，因此回调中可以注册新的计时器
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.due
		if next.interval > 0 {
			next.due += next.interval
		} else {
			next.stopped = true
		}
		fn := next.fn
		s.mu.Unlock()

		fn()
	}
}

// nextDue 最早到期且未停止的计时器，同时到期时按注册顺序
func (s *ManualScheduler) nextDue(target time.Duration) *manualTimer {
	s.timers = slices.DeleteFunc(s.timers, func(t *manualTimer) bool { return t.stopped })
	var next *manualTimer
	for _, t := range s.timers {
		if t.due > target {
			continue
		}
		if next == nil || t.due < next.due || (t.due == next.due && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

// Pending 未停止的计时器数量
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// FixedRandom 依次返回给定值的随机源，用尽后重复最后一个
func FixedRandom(values ...float64) func() float64 {
	var (
		mu sync.Mutex
		i  int
	)
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		v := values[min(i, len(values)-1)]
		i++
		return v
	}
}
