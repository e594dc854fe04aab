// Package character tracks the local player's attributes that feed the
// movement cost model: agility and carried load.
package character

import (
	"math"
	"sort"
	"sync"
)

// StatID enumerates the attributes tracked by the sheet.
type StatID uint8

const (
	StatAgility StatID = iota
	StatStrength

	StatCount
)

// Layer describes the precedence order for modifiers.
type Layer uint8

const (
	LayerBase Layer = iota
	LayerEquipment
	LayerTemporary

	LayerCount
)

// ValueSet stores a fixed vector of stat values.
type ValueSet [StatCount]float64

// Delta captures additive and multiplicative contributions of one source.
type Delta struct {
	Add ValueSet
	Mul ValueSet
}

// NewDelta creates a delta with neutral multipliers.
func NewDelta() Delta {
	return Delta{Mul: unitValueSet()}
}

// Change is an atomic mutation applied to a Sheet.
type Change struct {
	Layer  Layer
	Source string
	Delta  Delta
	Remove bool
}

const (
	carryPerStrength = 2.5
	minCarry         = 5.0
	// Running stops once the load reaches capacity.
	runLoadLimit = 1.0
)

// Sheet is safe for concurrent use: the coordinator worker reads it while
// the input layer mutates it.
type Sheet struct {
	mu      sync.RWMutex
	sources [LayerCount]map[string]Delta
	totals  ValueSet
	carried float64
	version uint64
}

// NewSheet constructs a sheet seeded with base values.
func NewSheet(base ValueSet) *Sheet {
	s := &Sheet{}
	delta := NewDelta()
	delta.Add = base
	s.apply(Change{Layer: LayerBase, Source: "base", Delta: delta})
	return s
}

// DefaultSheet is a player with baseline agility and no load.
func DefaultSheet() *Sheet {
	return NewSheet(ValueSet{StatAgility: 10, StatStrength: 10})
}

// Apply mutates the sheet.
func (s *Sheet) Apply(change Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(change)
}

func (s *Sheet) apply(change Change) {
	if change.Layer >= LayerCount {
		return
	}
	if change.Remove {
		delete(s.sources[change.Layer], change.Source)
	} else {
		if s.sources[change.Layer] == nil {
			s.sources[change.Layer] = make(map[string]Delta)
		}
		s.sources[change.Layer][change.Source] = change.Delta
	}
	s.resolve()
}

// resolve folds layers in order; sources inside a layer fold by name.
func (s *Sheet) resolve() {
	var total ValueSet
	for layer := Layer(0); layer < LayerCount; layer++ {
		entries := s.sources[layer]
		names := make([]string, 0, len(entries))
		for name := range entries {
			names = append(names, name)
		}
		sort.Strings(names)
		mul := unitValueSet()
		for _, name := range names {
			delta := entries[name]
			for i := range total {
				total[i] += delta.Add[i]
				mul[i] *= delta.Mul[i]
			}
		}
		for i := range total {
			total[i] *= mul[i]
		}
	}
	s.totals = total
	s.version++
}

// SetCarried records the carried weight.
func (s *Sheet) SetCarried(weight float64) {
	if weight < 0 || math.IsNaN(weight) {
		weight = 0
	}
	s.mu.Lock()
	s.carried = weight
	s.version++
	s.mu.Unlock()
}

// Total returns the resolved value of id.
func (s *Sheet) Total(id StatID) float64 {
	if id >= StatCount {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals[id]
}

// Version increments on every change.
func (s *Sheet) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Capacity is the weight the character carries at a load factor of 1.
func (s *Sheet) Capacity() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capacity()
}

func (s *Sheet) capacity() float64 {
	return math.Max(minCarry, s.totals[StatStrength]*carryPerStrength)
}

// Agility implements motion.AgilityProvider.
func (s *Sheet) Agility() int {
	return int(math.Round(s.Total(StatAgility)))
}

// LoadFactor implements motion.CarryLoadProvider.
func (s *Sheet) LoadFactor() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.carried / s.capacity()
}

// IsRunningPossible implements motion.CarryLoadProvider.
func (s *Sheet) IsRunningPossible() bool {
	return s.LoadFactor() < runLoadLimit
}

func unitValueSet() ValueSet {
	var vs ValueSet
	for i := range vs {
		vs[i] = 1
	}
	return vs
}
