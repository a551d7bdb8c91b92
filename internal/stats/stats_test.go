package stats

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters_Record(t *testing.T) {
	c := NewCounters()
	c.Record("julio", "Bache", "Pendiente")
	c.Record("julio", "Bache", "Atendido")
	c.Record("agosto", "Luminaria", "Pendiente")

	assert.Equal(t, 3, c.Total)
	assert.Equal(t, Counter{"julio": 2, "agosto": 1}, c.Month)
	assert.Equal(t, Counter{"Bache": 2, "Luminaria": 1}, c.Type)
	assert.Equal(t, Counter{"Pendiente": 2, "Atendido": 1}, c.Status)
	assert.Equal(t, 2, c.MonthType["julio|Bache"])
	assert.Equal(t, 1, c.MonthStatus["julio|Atendido"])
	assert.Equal(t, 1, c.TypeStatus["Luminaria|Pendiente"])
	assert.Equal(t, 1, c.MonthTypeStatus["julio|Bache|Pendiente"])
	assert.Equal(t, 1, c.MonthTypeStatus["agosto|Luminaria|Pendiente"])
}

func TestGroup_EnsureKeepsFirstLabel(t *testing.T) {
	g := Group{}
	first := g.Ensure("CENTRO", "Centro")
	again := g.Ensure("CENTRO", "CENTRO ")

	assert.Same(t, first, again)
	assert.Equal(t, "Centro", again.Label)
	assert.Zero(t, again.Total)
	assert.NotNil(t, again.MonthTypeStatus)
}

func TestAggregation_NeighborhoodTotalsSumToGlobal(t *testing.T) {
	a := New(0)
	hoods := []string{"CENTRO", "ROMA", "CONDESA"}
	for i := 0; i < 30; i++ {
		key := hoods[i%len(hoods)]
		a.Record(Observation{
			NeighborhoodKey: key, NeighborhoodLabel: key,
			SectionKey: fmt.Sprintf("%d", i%4), SectionLabel: i % 4,
			Month: "enero", Type: "Bache", Status: "Pendiente",
		})
	}

	assert.Equal(t, 30, a.Global.Total)
	assert.Equal(t, a.Global.Total, a.Neighborhoods.Total())
	assert.Equal(t, a.Global.Total, a.Sections.Total())
	assert.Len(t, a.Neighborhoods, 3)
	assert.Len(t, a.Sections, 4)
}

func TestAggregation_InvalidSampleBounded(t *testing.T) {
	a := New(2)
	for i := 0; i < 5; i++ {
		a.InvalidCoords(InvalidCoord{Index: i}, i%2 == 0)
	}

	assert.Equal(t, 5, a.Coords.Invalid)
	assert.Equal(t, 3, a.Coords.InvalidRange)
	assert.Equal(t, 2, a.Coords.InvalidFormat)
	require.Len(t, a.Coords.InvalidSample, 2)
	assert.Equal(t, 0, a.Coords.InvalidSample[0].Index)
	assert.Equal(t, 1, a.Coords.InvalidSample[1].Index)
}

func TestAggregation_MergeMatchesSequential(t *testing.T) {
	obs := []Observation{
		{NeighborhoodKey: "CENTRO", NeighborhoodLabel: "Centro", SectionKey: "1", SectionLabel: "1", Month: "enero", Type: "Bache", Status: "Pendiente"},
		{NeighborhoodKey: "ROMA", NeighborhoodLabel: "Roma", SectionKey: "2", SectionLabel: "2", Month: "enero", Type: "Fuga", Status: "Atendido"},
		{NeighborhoodKey: "CENTRO", NeighborhoodLabel: "centro", SectionKey: "1", SectionLabel: "01", Month: "marzo", Type: "Bache", Status: "Pendiente"},
		{NeighborhoodKey: "ROMA", NeighborhoodLabel: "ROMA", SectionKey: "3", SectionLabel: "3", Month: "marzo", Type: "Fuga", Status: "Pendiente"},
	}

	seq := New(10)
	for i, o := range obs {
		seq.Seen()
		seq.Valid()
		seq.Record(o)
		if i == 1 {
			seq.InvalidCoords(InvalidCoord{Index: i}, true)
		}
	}

	left, right := New(10), New(10)
	for i, o := range obs {
		part := left
		if i >= 2 {
			part = right
		}
		part.Seen()
		part.Valid()
		part.Record(o)
		if i == 1 {
			part.InvalidCoords(InvalidCoord{Index: i}, true)
		}
	}
	left.Merge(right)

	assert.Equal(t, seq.Global, left.Global)
	assert.Equal(t, seq.Neighborhoods, left.Neighborhoods)
	assert.Equal(t, seq.Sections, left.Sections)
	assert.Equal(t, seq.Coords, left.Coords)
	assert.Equal(t, "Centro", left.Neighborhoods["CENTRO"].Label)

	months, types, statuses := left.Values.Sorted()
	assert.Equal(t, []string{"enero", "marzo"}, months)
	assert.Equal(t, []string{"Bache", "Fuga"}, types)
	assert.Equal(t, []string{"Atendido", "Pendiente"}, statuses)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a|b|c", Join("a", "b", "c"))
	assert.Equal(t, "a", Join("a"))
}
