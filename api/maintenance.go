/*
maintenance.go - Periodic materialization extension

PURPOSE:
  Keeps every active rule materialized through the horizon. Runs once at
  startup and then on a configurable interval; each needing rule yields one
  plan of missing instances, applied atomically. The pass is idempotent:
  when nothing is due for extension it does nothing.

USAGE:
  runner := NewExtensionRunner(handler)
  runner.Start()
  // ... later
  runner.Stop()

SEE ALSO:
  - schedule/extension.go: the decision and expansion logic
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/arimaro0217/bizflow-core/schedule"
)

// RunExtensionPass extends every active rule whose materialization has
// drifted inside the horizon. One plan per rule, each atomic.
func (h *Handler) RunExtensionPass(ctx context.Context) (ExtensionResultDTO, error) {
	var result ExtensionResultDTO

	rules, err := h.Store.ListRules(ctx)
	if err != nil {
		return result, err
	}

	now := h.Now()
	scheduler := h.scheduler()

	for _, rule := range rules {
		if !rule.Active {
			continue
		}

		existing, err := h.Store.ListEventsByRule(ctx, rule.ID)
		if err != nil {
			return result, err
		}
		if !scheduler.NeedsExtension(rule, existing, now) {
			continue
		}

		var cp *schedule.Counterparty
		if rule.CounterpartyID != "" {
			cp, err = h.Store.GetCounterparty(ctx, rule.CounterpartyID)
			if err != nil {
				return result, err
			}
		}

		missing, err := scheduler.Extend(rule, cp, existing, now)
		if err != nil {
			return result, err
		}
		if len(missing) == 0 {
			continue
		}

		if err := h.Store.ApplyPlan(ctx, schedule.PlanCreateEvents(missing)); err != nil {
			return result, err
		}
		result.RulesExtended++
		result.EventsCreated += len(missing)
	}
	return result, nil
}

// ExtensionRunner triggers the extension pass at startup and on an interval.
type ExtensionRunner struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewExtensionRunner creates a runner with the default 12h interval.
func NewExtensionRunner(handler *Handler) *ExtensionRunner {
	return &ExtensionRunner{
		Handler:       handler,
		CheckInterval: 12 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the runner.
func (er *ExtensionRunner) Start() {
	er.mu.Lock()
	defer er.mu.Unlock()

	if !er.Enabled {
		log.Println("[Maintenance] Disabled, not starting")
		return
	}

	er.ticker = time.NewTicker(er.CheckInterval)
	er.wg.Add(1)
	go er.run()

	log.Printf("[Maintenance] Started with check interval: %v", er.CheckInterval)
}

// Stop stops the runner.
func (er *ExtensionRunner) Stop() {
	er.mu.Lock()
	defer er.mu.Unlock()

	if er.ticker != nil {
		er.ticker.Stop()
		close(er.stop)
		er.wg.Wait()
		log.Println("[Maintenance] Stopped")
	}
}

func (er *ExtensionRunner) run() {
	defer er.wg.Done()

	// Run immediately on start.
	er.runOnce()

	for {
		select {
		case <-er.ticker.C:
			er.runOnce()
		case <-er.stop:
			return
		}
	}
}

func (er *ExtensionRunner) runOnce() {
	result, err := er.Handler.RunExtensionPass(context.Background())
	if err != nil {
		log.Printf("[Maintenance] Extension pass failed: %v", err)
		return
	}
	if result.RulesExtended > 0 {
		log.Printf("[Maintenance] Extended %d rules, %d new instances",
			result.RulesExtended, result.EventsCreated)
	}
}
