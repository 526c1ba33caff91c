package main

import (
	"sync"

	"github.com/jmylchreest/plink/internal/bridge"
	"github.com/jmylchreest/plink/internal/logger"
	"github.com/jmylchreest/plink/pkg/cleaner"
)

// handleManager owns the cleaners created through plink_cleaner_new.
var handleManager = &cleanerHandles{
	cleaners: make(map[int]*cleaner.Cleaner),
}

type cleanerHandles struct {
	mu       sync.RWMutex
	cleaners map[int]*cleaner.Cleaner
	nextID   int
}

func (h *cleanerHandles) add(c *cleaner.Cleaner) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.cleaners[h.nextID] = c
	return h.nextID
}

func (h *cleanerHandles) get(id int) (*cleaner.Cleaner, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.cleaners[id]
	return c, ok
}

func (h *cleanerHandles) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.cleaners, id)
}

func (h *cleanerHandles) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.cleaners)
}

// lastError holds the reason the most recent plink_cleaner_new call failed.
var lastError errorSlot

type errorSlot struct {
	mu  sync.Mutex
	msg string
}

func (e *errorSlot) set(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		e.msg = ""
		return
	}
	e.msg = err.Error()
}

func (e *errorSlot) get() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.msg
}

// newHandle builds a cleaner from configJSON and registers it. It returns
// -1 on failure and records the reason in lastError.
func newHandle(configJSON string) int {
	c, err := bridge.NewCleaner(configJSON)
	lastError.set(err)
	if err != nil {
		logger.Error("failed to create cleaner", "error", err)
		return -1
	}
	return handleManager.add(c)
}
