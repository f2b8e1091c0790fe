package services

import (
	"math"

	"route-planner-service/internal/domain"
	"route-planner-service/internal/geo"
)

// ExactSearchLimit is the largest stop count solved by exhaustive search.
// 9! = 362,880 orders stays well within a single request.
const ExactSearchLimit = 9

// Optimize orders stops between a fixed start and an optional fixed end,
// minimizing total great-circle distance.
//
// Up to ExactSearchLimit stops every order is examined; beyond that a greedy
// nearest-neighbor pass is used, which ignores end when choosing each step.
// Stops without a coordinate are skipped. DistanceFromPreviousKm is populated
// along the chosen order. The input slice is not modified and the result is
// deterministic for a given input.
func Optimize(start domain.Coordinate, stops []domain.Stop, end *domain.Coordinate) []domain.Stop {
	located := make([]domain.Stop, 0, len(stops))
	for _, s := range stops {
		if s.Locatable() {
			located = append(located, s)
		}
	}

	if len(located) == 0 {
		return []domain.Stop{}
	}

	m := newCostModel(start, located, end)

	var order []int
	switch n := len(located); {
	case n == 1:
		order = []int{1}
	case n <= ExactSearchLimit:
		order = m.exhaustive()
	default:
		order = m.nearestNeighbor()
	}

	out := make([]domain.Stop, 0, len(order))
	prev := 0
	for _, idx := range order {
		s := located[idx-1]
		s.DistanceFromPreviousKm = m.leg(prev, idx)
		out = append(out, s)
		prev = idx
	}

	return out
}

// RouteCost returns the great-circle length of visiting stops in the given
// order from start, closing at end when end is non-nil. Stops without a
// coordinate are skipped.
func RouteCost(start domain.Coordinate, ordered []domain.Stop, end *domain.Coordinate) float64 {
	points := make([]domain.Coordinate, 0, len(ordered)+2)
	points = append(points, start)
	for _, s := range ordered {
		if s.Locatable() {
			points = append(points, *s.Coordinate)
		}
	}
	if end != nil {
		points = append(points, *end)
	}
	return geo.PathKm(points...)
}

// costModel holds the pairwise distances of start (index 0), the stops
// (1..n) and the optional end (n+1). Both search strategies share it so the
// optional end leg is handled in one place.
type costModel struct {
	dist   [][]float64
	stops  int
	hasEnd bool
}

func newCostModel(start domain.Coordinate, stops []domain.Stop, end *domain.Coordinate) *costModel {
	points := make([]domain.Coordinate, 0, len(stops)+2)
	points = append(points, start)
	for _, s := range stops {
		points = append(points, *s.Coordinate)
	}
	if end != nil {
		points = append(points, *end)
	}

	dist := make([][]float64, len(points))
	for i := range points {
		dist[i] = make([]float64, len(points))
	}
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			d := geo.HaversineKm(points[i], points[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	return &costModel{dist: dist, stops: len(stops), hasEnd: end != nil}
}

func (m *costModel) leg(from, to int) float64 { return m.dist[from][to] }

// closing is the cost of the final leg to the end, or zero without an end.
func (m *costModel) closing(last int) float64 {
	if !m.hasEnd {
		return 0
	}
	return m.dist[last][m.stops+1]
}

// exhaustive enumerates every order with an in-place swap generator and keeps
// the first order reaching the minimum cost. Branches whose partial cost
// already reaches the best complete cost are cut.
func (m *costModel) exhaustive() []int {
	s := &permSearch{
		model:    m,
		perm:     make([]int, m.stops),
		best:     make([]int, m.stops),
		bestCost: math.Inf(1),
	}
	for i := range s.perm {
		s.perm[i] = i + 1
	}

	s.walk(0, 0)
	return s.best
}

type permSearch struct {
	model    *costModel
	perm     []int
	best     []int
	bestCost float64
}

func (s *permSearch) walk(k int, cost float64) {
	if cost >= s.bestCost {
		return
	}

	n := len(s.perm)
	if k == n {
		total := cost + s.model.closing(s.perm[n-1])
		if total < s.bestCost {
			s.bestCost = total
			copy(s.best, s.perm)
		}
		return
	}

	prev := 0
	if k > 0 {
		prev = s.perm[k-1]
	}

	for i := k; i < n; i++ {
		s.perm[k], s.perm[i] = s.perm[i], s.perm[k]
		s.walk(k+1, cost+s.model.leg(prev, s.perm[k]))
		s.perm[k], s.perm[i] = s.perm[i], s.perm[k]
	}
}

// nearestNeighbor repeatedly moves to the closest unvisited stop.
// Ties keep the stop that came first in the input.
func (m *costModel) nearestNeighbor() []int {
	visited := make([]bool, m.stops+1)
	order := make([]int, 0, m.stops)

	current := 0
	for len(order) < m.stops {
		next := -1
		best := math.Inf(1)
		for j := 1; j <= m.stops; j++ {
			if visited[j] {
				continue
			}
			if d := m.leg(current, j); d < best {
				best = d
				next = j
			}
		}

		visited[next] = true
		order = append(order, next)
		current = next
	}

	return order
}
