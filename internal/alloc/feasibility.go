package alloc

import "fairshare/internal/model"

// Feasibility is the boolean tensor over (agency, donor, driver) marking
// physically and contractually possible trips. Built once per batch and
// never mutated during solving.
type Feasibility struct {
	nAgencies int
	nDonors   int
	nDrivers  int
	cells     []bool

	// FeasibleTrips is a diagnostic count of true cells.
	FeasibleTrips int
}

// TripAllowed applies the pair-level adjacency and partnership rule:
// partner donors may not serve non-partner agencies regardless of
// adjacency.
func TripAllowed(donor model.Donor, agency model.Agency, adjacent bool) bool {
	if !adjacent {
		return false
	}
	if donor.Partner && agency.Tier == model.TierNone {
		return false
	}
	return true
}

// BuildFeasibility derives the tensor from the donor×agency adjacency
// matrix. Every driver inherits the pair's verdict; driver-specific
// restrictions (location, capacity) are intentionally out of scope for
// the precomputation.
func BuildFeasibility(donors []model.Donor, agencies []model.Agency, drivers []model.Driver, adj [][]bool) *Feasibility {
	f := &Feasibility{
		nAgencies: len(agencies),
		nDonors:   len(donors),
		nDrivers:  len(drivers),
		cells:     make([]bool, len(agencies)*len(donors)*len(drivers)),
	}
	for a := range agencies {
		for d := range donors {
			ok := TripAllowed(donors[d], agencies[a], adj[d][a])
			if !ok {
				continue
			}
			for k := range drivers {
				f.cells[f.idx(a, d, k)] = true
				f.FeasibleTrips++
			}
		}
	}
	return f
}

func (f *Feasibility) idx(agency, donor, driver int) int {
	return (agency*f.nDonors+donor)*f.nDrivers + driver
}

// At reports whether driver k may run the trip from donor d to agency a.
func (f *Feasibility) At(agency, donor, driver int) bool {
	return f.cells[f.idx(agency, donor, driver)]
}

// PairFeasible reports whether any driver may serve the (donor, agency)
// pair.
func (f *Feasibility) PairFeasible(agency, donor int) bool {
	for k := 0; k < f.nDrivers; k++ {
		if f.At(agency, donor, k) {
			return true
		}
	}
	return false
}

// Size returns the tensor cell count.
func (f *Feasibility) Size() int { return len(f.cells) }
