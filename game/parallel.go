package game

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum racing agent count to use the worker pool.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 32

// workChunk represents a range of the racing slot list for a worker.
type workChunk struct {
	start, end int
}

// parallelState holds the persistent worker pool for agent ticks.
type parallelState struct {
	slots      []int // racing agent slots this tick
	numWorkers int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(workers int) *parallelState {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &parallelState{
		numWorkers: workers,
		slots:      make([]int, 0, 128),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(pop *Population) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(pop)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(pop *Population) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			pop.tickChunk(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// tickParallel dispatches the racing slots to the worker pool and waits.
func (pop *Population) tickParallel(n int) {
	if !pop.parallel.running {
		pop.parallel.startWorkers(pop)
	}

	numWorkers := pop.parallel.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	// Dispatch chunks to workers
	chunksDispatched := 0
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		pop.parallel.workChan <- workChunk{start: start, end: end}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < chunksDispatched; i++ {
		<-pop.parallel.doneChan
	}
}

// tickChunk advances a range of racing agents. Each agent only touches its
// own state, so chunks never conflict.
func (pop *Population) tickChunk(i0, i1 int) {
	for _, slot := range pop.parallel.slots[i0:i1] {
		pop.agents[slot].Tick(pop.rig, pop.cfg)
	}
}
