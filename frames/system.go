// Package frames collects coordinate frames and their relations and
// computes all other relations on demand by composing stored edges
// along a shortest path.
package frames

import (
	"container/heap"
	"fmt"
	"sort"

	"wandelscript/types"
)

type relationKey struct {
	Target string
	Source string
}

// System is a set of named frames plus a map from ordered frame pairs
// to rigid-body transforms. Missing relations are derived by running
// Dijkstra over the undirected adjacency: a stored edge costs 1 in its
// stored direction and 2 inverted, which breaks ties towards stored
// directions.
type System struct {
	relations map[relationKey]types.PoseValue
}

// NewSystem creates an empty frame system
func NewSystem() *System {
	return &System{relations: make(map[relationKey]types.PoseValue)}
}

// Copy returns a deep copy of the system
func (s *System) Copy() *System {
	relations := make(map[relationKey]types.PoseValue, len(s.relations))
	for k, v := range s.relations {
		relations[k] = v
	}
	return &System{relations: relations}
}

// Set stores the transform of target relative to source
func (s *System) Set(target, source string, pose types.PoseValue) {
	s.relations[relationKey{target, source}] = pose
}

// Get returns the directly stored transform, if any
func (s *System) Get(target, source string) (types.PoseValue, bool) {
	p, ok := s.relations[relationKey{target, source}]
	return p, ok
}

// Frames returns all frame names mentioned by any relation, sorted
func (s *System) Frames() []string {
	seen := make(map[string]bool)
	for k := range s.relations {
		seen[k.Target] = true
		seen[k.Source] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Eval returns the transform of target relative to source, composing
// stored relations along the cheapest chain when no direct relation
// exists.
func (s *System) Eval(target, source string) (types.PoseValue, error) {
	if pose, ok := s.Get(target, source); ok {
		return pose, nil
	}
	return s.compute(target, source)
}

// pqItem is a heap entry for the shortest-path search
type pqItem struct {
	frame string
	dist  int
}

type framePQ []pqItem

func (pq framePQ) Len() int            { return len(pq) }
func (pq framePQ) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq framePQ) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *framePQ) Push(x any)         { *pq = append(*pq, x.(pqItem)) }
func (pq *framePQ) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// compute runs Dijkstra from target and composes the edge chain from
// source back to target. Lazy decrease-key: duplicates are pushed and
// stale entries skipped on pop.
func (s *System) compute(target, source string) (types.PoseValue, error) {
	adjacency := make(map[string][]pqItem)
	known := make(map[string]bool)
	for k := range s.relations {
		adjacency[k.Target] = append(adjacency[k.Target], pqItem{frame: k.Source, dist: 1})
		adjacency[k.Source] = append(adjacency[k.Source], pqItem{frame: k.Target, dist: 2})
		known[k.Target] = true
		known[k.Source] = true
	}
	if !known[target] {
		return types.PoseValue{}, fmt.Errorf("unknown frame: %s", target)
	}
	if !known[source] {
		return types.PoseValue{}, fmt.Errorf("unknown frame: %s", source)
	}

	dist := map[string]int{target: 0}
	prev := make(map[string]string)
	visited := make(map[string]bool)
	pq := &framePQ{{frame: target, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(pqItem)
		if visited[item.frame] {
			continue
		}
		visited[item.frame] = true
		if item.frame == source {
			break
		}
		for _, edge := range adjacency[item.frame] {
			next := item.dist + edge.dist
			if d, ok := dist[edge.frame]; !ok || next < d {
				dist[edge.frame] = next
				prev[edge.frame] = item.frame
				heap.Push(pq, pqItem{frame: edge.frame, dist: next})
			}
		}
	}

	if !visited[source] {
		return types.PoseValue{}, fmt.Errorf("no relation between frames %s and %s", target, source)
	}

	// walk from source back towards target, composing as we go
	result := types.NewPose(0, 0, 0, 0, 0, 0)
	current := source
	for current != target {
		parent := prev[current]
		if t, ok := s.Get(parent, current); ok {
			result = result.Compose(t)
		} else {
			t, _ := s.Get(current, parent)
			result = result.Compose(t.Inverse())
		}
		current = parent
	}
	return result, nil
}
