package sync

import (
	"sync"
	"time"
)

// defaultInterval интервал автосинхронизации по умолчанию
const defaultInterval = 1000 * time.Millisecond

// Scheduler управляет периодическим вызовом шага автосинхронизации.
// Решение, выполнять ли шаг (есть ли ожидающие операции, подключен ли
// координатор), принимает сам координатор в Tick.
type Scheduler interface {
	// Start запускает периодический вызов tick. Повторный Start — no-op.
	Start(tick func())

	// Stop останавливает вызовы и дожидается завершения текущего
	Stop()
}

// IntervalScheduler вызывает tick с фиксированным интервалом
type IntervalScheduler struct {
	mu       sync.Mutex
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewIntervalScheduler создает планировщик с заданным интервалом.
// Неположительный интервал заменяется значением по умолчанию (1000ms).
func NewIntervalScheduler(interval time.Duration) *IntervalScheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &IntervalScheduler{interval: interval}
}

// Start запускает цикл планировщика
func (s *IntervalScheduler) Start(tick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(tick, s.stop, s.done)
}

// Stop останавливает цикл и дожидается завершения текущего tick
func (s *IntervalScheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}

	close(stop)
	<-done
}

func (s *IntervalScheduler) run(tick func(), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			tick()
		}
	}
}
