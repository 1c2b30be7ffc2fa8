package metrics

import (
	"context"
	"time"

	"github.com/fasttq/fasttq/pkg/storage"
	"github.com/fasttq/fasttq/pkg/types"
)

// RegistrySizer reports how many workers are currently registered for
// dispatch. Implemented by the broker coordinator.
type RegistrySizer interface {
	WorkerCount() int
}

// Collector periodically samples gauge metrics from the store and the
// dispatch registry.
type Collector struct {
	store    storage.Store
	registry RegistrySizer
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store storage.Store, registry RegistrySizer) *Collector {
	return &Collector{
		store:    store,
		registry: registry,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c.collectTaskMetrics(ctx)
	c.collectWorkerMetrics(ctx)
}

func (c *Collector) collectTaskMetrics(ctx context.Context) {
	counts, err := c.store.TaskStatusCounts(ctx)
	if err != nil {
		return
	}

	// Set every status explicitly so counts that drop to zero don't leave
	// a stale gauge behind.
	for _, status := range types.TaskStatuses() {
		TasksTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

func (c *Collector) collectWorkerMetrics(ctx context.Context) {
	workers, err := c.store.ListWorkers(ctx)
	if err != nil {
		return
	}

	active, inactive := 0, 0
	for _, worker := range workers {
		if worker.Active {
			active++
		} else {
			inactive++
		}
	}
	WorkersTotal.WithLabelValues("active").Set(float64(active))
	WorkersTotal.WithLabelValues("inactive").Set(float64(inactive))

	if c.registry != nil {
		RegistrySize.Set(float64(c.registry.WorkerCount()))
	}
}
