package room

import (
	"sync"
	"time"
)

// Timer 可取消的计时器句柄
type Timer interface {
	Stop() bool
}

// Scheduler 计时器工厂，测试中替换为手动推进的实现
type Scheduler interface {
	After(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
}

// RealScheduler 基于 time 包的实现
type RealScheduler struct{}

// After d 之后在独立协程中执行 fn
func (RealScheduler) After(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Every 每隔 d 执行一次 fn，直到 Stop
func (RealScheduler) Every(d time.Duration, fn func()) Timer {
	t := &tickerTimer{stop: make(chan struct{})}
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-t.stop:
				return
			}
		}
	}()
	return t
}

type tickerTimer struct {
	stop chan struct{}
	once sync.Once
}

func (t *tickerTimer) Stop() bool {
	stopped := false
	t.once.Do(func() {
		close(t.stop)
		stopped = true
	})
	return stopped
}

// stopTimer 停止并清空句柄
func stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
