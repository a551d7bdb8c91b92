// Package stats accumulates request counts by month, type and status for
// the whole dataset and per grouping entity.
package stats

import (
	"sort"
	"strings"
)

// Sep joins the components of composite counter keys.
const Sep = "|"

// Counter maps a (possibly composite) dimension key to a count.
type Counter map[string]int

// Inc adds one to key, creating it on first use.
func (c Counter) Inc(key string) {
	c[key]++
}

// Keys returns the counter keys in sorted order.
func (c Counter) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c Counter) add(other Counter) {
	for k, v := range other {
		c[k] += v
	}
}

// Counters is the bundle of tallies kept for every aggregation entity.
type Counters struct {
	Total           int     `json:"total"`
	Month           Counter `json:"mes"`
	Type            Counter `json:"tipo"`
	Status          Counter `json:"estado"`
	MonthType       Counter `json:"mes_tipo"`
	MonthStatus     Counter `json:"mes_estado"`
	TypeStatus      Counter `json:"tipo_estado"`
	MonthTypeStatus Counter `json:"mes_tipo_estado"`
}

// NewCounters returns an all-zero bundle.
func NewCounters() *Counters {
	return &Counters{
		Month:           Counter{},
		Type:            Counter{},
		Status:          Counter{},
		MonthType:       Counter{},
		MonthStatus:     Counter{},
		TypeStatus:      Counter{},
		MonthTypeStatus: Counter{},
	}
}

// Record counts one request. Missing components must already have been
// replaced with sentinel values; every dimension is always incremented.
func (c *Counters) Record(month, typ, status string) {
	c.Total++
	c.Month.Inc(month)
	c.Type.Inc(typ)
	c.Status.Inc(status)
	c.MonthType.Inc(Join(month, typ))
	c.MonthStatus.Inc(Join(month, status))
	c.TypeStatus.Inc(Join(typ, status))
	c.MonthTypeStatus.Inc(Join(month, typ, status))
}

// Merge adds other's counts into c.
func (c *Counters) Merge(other *Counters) {
	if other == nil {
		return
	}
	c.Total += other.Total
	c.Month.add(other.Month)
	c.Type.add(other.Type)
	c.Status.add(other.Status)
	c.MonthType.add(other.MonthType)
	c.MonthStatus.add(other.MonthStatus)
	c.TypeStatus.add(other.TypeStatus)
	c.MonthTypeStatus.add(other.MonthTypeStatus)
}

// Dimensions returns the counters keyed by their serialized names.
func (c *Counters) Dimensions() map[string]Counter {
	return map[string]Counter{
		"mes":             c.Month,
		"tipo":            c.Type,
		"estado":          c.Status,
		"mes_tipo":        c.MonthType,
		"mes_estado":      c.MonthStatus,
		"tipo_estado":     c.TypeStatus,
		"mes_tipo_estado": c.MonthTypeStatus,
	}
}

// Join builds a composite counter key.
func Join(parts ...string) string {
	return strings.Join(parts, Sep)
}

// Entity is a Counters bundle for one grouping key, with the first raw label
// observed for that key.
type Entity struct {
	Label any `json:"label"`
	Counters
}

// Group maps grouping keys to entities.
type Group map[string]*Entity

// Ensure returns the entity for key, creating it with label on first use.
// Later calls keep the original label.
func (g Group) Ensure(key string, label any) *Entity {
	if e, ok := g[key]; ok {
		return e
	}
	e := &Entity{Label: label, Counters: *NewCounters()}
	g[key] = e
	return e
}

// Keys returns the group keys in sorted order.
func (g Group) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge folds other into g. Entities already present keep their label.
func (g Group) Merge(other Group) {
	for _, k := range other.Keys() {
		src := other[k]
		g.Ensure(k, src.Label).Merge(&src.Counters)
	}
}

// Total sums the totals of all entities.
func (g Group) Total() int {
	var n int
	for _, e := range g {
		n += e.Total
	}
	return n
}
