// Package registry implements the process-wide (but explicitly
// instantiable) append-only log of ExecutionContexts.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/falyx-go/falyx/internal/execctx"
)

// Recorder is an explicit handle for recording and querying
// ExecutionContexts. Default below is a convenience singleton built on
// top of one, for callers that don't need their own instance.
type Recorder struct {
	mu     sync.RWMutex
	all    []*execctx.ExecutionContext
	byName map[string][]*execctx.ExecutionContext
}

// NewRecorder builds an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{byName: map[string][]*execctx.ExecutionContext{}}
}

// Record appends ctx to both the flat and name-indexed views. Once
// recorded, callers must treat ctx as immutable.
func (r *Recorder) Record(ctx *execctx.ExecutionContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, ctx)
	r.byName[ctx.Name] = append(r.byName[ctx.Name], ctx)
}

// GetAll returns a copy of every recorded context, in recording order.
func (r *Recorder) GetAll() []*execctx.ExecutionContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*execctx.ExecutionContext, len(r.all))
	copy(out, r.all)
	return out
}

// GetByName returns a copy of the contexts recorded for a given action name.
func (r *Recorder) GetByName(name string) []*execctx.ExecutionContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.byName[name]
	out := make([]*execctx.ExecutionContext, len(src))
	copy(out, src)
	return out
}

// GetLatest returns the most recently recorded context, or nil if none.
func (r *Recorder) GetLatest() *execctx.ExecutionContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.all) == 0 {
		return nil
	}
	return r.all[len(r.all)-1]
}

// Clear discards all recorded contexts. Intended for test isolation.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = nil
	r.byName = map[string][]*execctx.ExecutionContext{}
}

// summaryRow is one line of Summary()'s table.
type summaryRow struct {
	Name         string
	Count        int
	LastStatus   string
	LastDuration string
	LastID       string
}

// Summary renders a fixed-width plain-text table: name, invocation
// count, last status, last duration — one row per distinct action name,
// ordered by each name's first-seen ULID (time-ordered, since ULIDs
// encode creation time in their prefix).
func (r *Recorder) Summary() string {
	r.mu.RLock()
	rows := make([]summaryRow, 0, len(r.byName))
	for name, ctxs := range r.byName {
		last := ctxs[len(ctxs)-1]
		rows = append(rows, summaryRow{
			Name:         name,
			Count:        len(ctxs),
			LastStatus:   last.Status(),
			LastDuration: last.Duration().String(),
			LastID:       ctxs[0].ID,
		})
	}
	r.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].LastID < rows[j].LastID })

	var b strings.Builder
	nameW := len("NAME")
	for _, row := range rows {
		if len(row.Name) > nameW {
			nameW = len(row.Name)
		}
	}
	fmt.Fprintf(&b, "%-*s  %6s  %-20s  %s\n", nameW, "NAME", "COUNT", "LAST STATUS", "LAST DURATION")
	for _, row := range rows {
		fmt.Fprintf(&b, "%-*s  %6d  %-20s  %s\n", nameW, row.Name, row.Count, row.LastStatus, row.LastDuration)
	}
	if len(rows) == 0 {
		b.WriteString("(no recorded executions)\n")
	}
	return b.String()
}

// defaultRecorder backs the package-level convenience singleton.
var defaultRecorder = NewRecorder()

// Default returns the process-wide convenience Recorder. Prefer
// threading an explicit *Recorder where practical; this exists as a
// convenience built atop the explicit handle, not a replacement for it.
func Default() *Recorder { return defaultRecorder }
