package alloc

import "fairshare/internal/model"

// Greedy is the leximin heuristic: repeatedly give the heaviest feasible
// item to the currently worst-off agency. Polynomial time, no optimality
// guarantee, but directly comparable with the optimization allocator
// since both return the same shapes.
//
// The loop halts outright when the selected worst-off agency has no
// feasible item left, even if other agencies could still be served. That
// is a deliberate simplification carried over from the reference design,
// not a fallthrough to the next-neediest agency.
func Greedy(ds *model.Dataset, obs Observer) (model.Allocation, []float64) {
	if obs == nil {
		obs = NopObserver
	}
	weights := AgencyWeights(ds.Agencies)
	allocation := model.Allocation{}
	utilities := make([]float64, len(ds.Agencies))

	// Working pool of unassigned (donor, item) pairs.
	type poolEntry struct {
		ref    model.ItemRef
		weight float64
	}
	var pool []poolEntry
	for d, donor := range ds.Donors {
		for i, item := range donor.Items {
			pool = append(pool, poolEntry{ref: model.ItemRef{Donor: d, Item: i}, weight: item.Weight})
		}
	}

	for len(pool) > 0 {
		// Worst-off agency by utility-per-weight ratio; first
		// encountered wins ties.
		worst := -1
		worstRatio := 0.0
		for a := range ds.Agencies {
			ratio := utilities[a] / weights[a]
			if worst < 0 || ratio < worstRatio {
				worst = a
				worstRatio = ratio
			}
		}
		if worst < 0 {
			break // no agencies
		}

		// Heaviest pool item feasible for that agency; first
		// encountered wins ties.
		pick := -1
		for pi, e := range pool {
			if !TripAllowed(ds.Donors[e.ref.Donor], ds.Agencies[worst], ds.Adjacency[e.ref.Donor][worst]) {
				continue
			}
			if pick < 0 || e.weight > pool[pick].weight {
				pick = pi
			}
		}
		if pick < 0 {
			break // worst-off agency starved: halt, do not retry others
		}

		e := pool[pick]
		pool = append(pool[:pick], pool[pick+1:]...)
		allocation[worst] = append(allocation[worst], e.ref)
		utilities[worst] += e.weight
		obs.Event(Event{
			Stage:     "assignment",
			Algorithm: "greedy",
			Agency:    worst,
			Ratio:     utilities[worst] / weights[worst],
		})
	}

	obs.Event(Event{Stage: "solve_finished", Algorithm: "greedy", Status: "completed"})
	return allocation, utilities
}
