package services

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

type PoolEntry struct {
	TargetNumber int    `yaml:"target"`
	Solution     string `yaml:"solution"`
}

type poolFile struct {
	Puzzles []PoolEntry `yaml:"puzzles"`
}

// DefaultPoolEntries are the built-in puzzles, all six characters long.
var DefaultPoolEntries = []PoolEntry{
	{TargetNumber: 12, Solution: "18-3*2"},
	{TargetNumber: 25, Solution: "10*2+5"},
	{TargetNumber: 7, Solution: "10-3+0"},
	{TargetNumber: 100, Solution: "50*2-0"},
	{TargetNumber: 1, Solution: "10/5-1"},
	{TargetNumber: 15, Solution: "10+5+0"},
	{TargetNumber: 30, Solution: "36-6+0"},
	{TargetNumber: 8, Solution: "16-8+0"},
}

type SelectionPolicy int

const (
	// SelectSequential hands out entries round-robin.
	SelectSequential SelectionPolicy = iota
	// SelectDaily hands out the same entry for a whole UTC day.
	SelectDaily
)

// ParseSelectionPolicy maps the configured name to a policy.
func ParseSelectionPolicy(name string) (SelectionPolicy, error) {
	switch name {
	case "", "sequential":
		return SelectSequential, nil
	case "daily":
		return SelectDaily, nil
	}
	return SelectSequential, fmt.Errorf("unknown selection policy %q", name)
}

type PuzzlePool struct {
	entries        []PoolEntry
	solutionLength int
	policy         SelectionPolicy
	next           atomic.Uint64
}

// NewPuzzlePool rejects any entry whose solution is not solutionLength
// characters long or does not evaluate exactly to its target.
func NewPuzzlePool(entries []PoolEntry, solutionLength int, policy SelectionPolicy) (*PuzzlePool, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("puzzle pool is empty")
	}

	for i, e := range entries {
		if n := utf8.RuneCountInString(e.Solution); n != solutionLength {
			return nil, fmt.Errorf("puzzle %d (%q): solution has %d characters, want %d", i, e.Solution, n, solutionLength)
		}
		v, err := Evaluate(e.Solution)
		if err != nil {
			return nil, fmt.Errorf("puzzle %d (%q): %w", i, e.Solution, err)
		}
		if v != float64(e.TargetNumber) {
			return nil, fmt.Errorf("puzzle %d (%q): evaluates to %v, want %d", i, e.Solution, v, e.TargetNumber)
		}
	}

	return &PuzzlePool{
		entries:        append([]PoolEntry(nil), entries...),
		solutionLength: solutionLength,
		policy:         policy,
	}, nil
}

func LoadPoolEntries(path string) ([]PoolEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read puzzle pool: %w", err)
	}

	var f poolFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse puzzle pool %s: %w", path, err)
	}
	return f.Puzzles, nil
}

func (p *PuzzlePool) SolutionLength() int {
	return p.solutionLength
}

func (p *PuzzlePool) Len() int {
	return len(p.entries)
}

func (p *PuzzlePool) Pick(now time.Time) PoolEntry {
	n := uint64(len(p.entries))
	switch p.policy {
	case SelectDaily:
		return p.entries[uint64(now.UTC().YearDay())%n]
	default:
		i := p.next.Add(1) - 1
		return p.entries[i%n]
	}
}
