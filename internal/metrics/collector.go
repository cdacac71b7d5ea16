package metrics

import (
	"sync"
	"time"

	"winamp-block/internal/logging"
)

// StatsProvider counts stored content.
type StatsProvider interface {
	GetStats() Stats
}

// ConnectionReporter is implemented by providers that also export their
// connection pool gauges.
type ConnectionReporter interface {
	UpdateDBMetrics()
}

// Stats holds the current content counts
type Stats struct {
	PlayerBlocks int
	SavedBlocks  int
	AudioBlocks  int
	PendingAudio int
	LibraryMedia int
	LibraryBytes int64
}

// Collector refreshes the content gauges on an interval.
type Collector struct {
	provider StatsProvider
	interval time.Duration
	log      *logging.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}

	mu   sync.Mutex
	last Stats
}

// NewCollector returns a Collector polling provider every interval.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Collector{
		provider: provider,
		interval: interval,
		log:      logging.For("metrics"),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start collects once and then on every tick until Stop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop ends collection and waits for the loop to exit. It is safe to call
// more than once, but only after Start.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	<-c.done
}

func (c *Collector) collectLoop() {
	defer close(c.done)
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}

	stats := c.provider.GetStats()
	if r, ok := c.provider.(ConnectionReporter); ok {
		r.UpdateDBMetrics()
	}

	PlayerBlocksTotal.Set(float64(stats.PlayerBlocks))
	SavedBlocksTotal.Set(float64(stats.SavedBlocks))
	AudioBlocksTotal.Set(float64(stats.AudioBlocks))
	PendingAudioTotal.Set(float64(stats.PendingAudio))
	LibraryMediaTotal.Set(float64(stats.LibraryMedia))
	LibraryBytes.Set(float64(stats.LibraryBytes))

	c.mu.Lock()
	changed := stats != c.last
	c.last = stats
	c.mu.Unlock()

	if changed {
		c.log.Debug("Content: players=%d (saved %d), audio=%d (pending %d), library=%d files",
			stats.PlayerBlocks, stats.SavedBlocks, stats.AudioBlocks, stats.PendingAudio, stats.LibraryMedia)
	}
}

// Last returns the counts of the most recent collection.
func (c *Collector) Last() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
