package agents

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum agent count to use parallel processing.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// chunk is a contiguous agent index range handed to one worker.
type chunk struct {
	start, end int
	dt         float32
}

// chunkPool runs the swarm's compute phase over index ranges on persistent
// workers. The compute phase reads only the snapshot slice and writes only
// its own intent rows, so chunks never conflict.
type chunkPool struct {
	numWorkers int
	compute    func(start, end int, dt float32)

	workChan chan chunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newChunkPool(compute func(start, end int, dt float32)) *chunkPool {
	return &chunkPool{
		numWorkers: runtime.GOMAXPROCS(0),
		compute:    compute,
	}
}

func (p *chunkPool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan chunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *chunkPool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *chunkPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case c, ok := <-p.workChan:
			if !ok {
				return
			}
			p.compute(c.start, c.end, c.dt)
			p.doneChan <- struct{}{}
		}
	}
}

// run executes the compute phase over [0, n) and returns once every chunk is
// done. Small swarms run on the calling goroutine.
func (p *chunkPool) run(n int, dt float32) {
	if n < parallelThreshold || p.numWorkers <= 1 {
		p.compute(0, n, dt)
		return
	}

	if !p.running {
		p.start()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		p.workChan <- chunk{start: start, end: end, dt: dt}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}
