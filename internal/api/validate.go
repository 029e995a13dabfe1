package api

import (
	"fmt"

	"fairshare/internal/model"
)

func validateDataset(ds *model.Dataset) error {
	if len(ds.Adjacency) != len(ds.Donors) {
		return fmt.Errorf("adjacency must have %d donor rows, got %d", len(ds.Donors), len(ds.Adjacency))
	}
	for d, row := range ds.Adjacency {
		if len(row) != len(ds.Agencies) {
			return fmt.Errorf("adjacency row %d must have %d agency columns, got %d", d, len(ds.Agencies), len(row))
		}
	}
	for d, donor := range ds.Donors {
		for i, item := range donor.Items {
			if item.Weight <= 0 {
				return fmt.Errorf("donor %d item %d: weight must be > 0", d, i)
			}
			sum := 0.0
			for _, lbs := range item.Categories {
				if lbs < 0 {
					return fmt.Errorf("donor %d item %d: negative category pounds", d, i)
				}
				sum += lbs
			}
			if sum > item.Weight+1e-9 {
				return fmt.Errorf("donor %d item %d: category pounds exceed item weight", d, i)
			}
		}
	}
	for a, agency := range ds.Agencies {
		switch agency.Tier {
		case "", model.TierNone, model.TierExclusive, model.TierNonExclusive:
		default:
			return fmt.Errorf("agency %d: unknown tier %q", a, agency.Tier)
		}
	}
	return nil
}

func validateAllocateRequest(req *model.AllocateRequest) error {
	if req.DatasetID == "" {
		return fmt.Errorf("datasetId is required")
	}
	switch req.Algorithm {
	case "", "greedy", "egalitarian", "both":
	default:
		return fmt.Errorf("invalid algorithm: %s (allowed: greedy, egalitarian, both)", req.Algorithm)
	}
	if req.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	for cat, w := range req.CategoryWeights {
		if w < 0 {
			return fmt.Errorf("categoryWeights[%s] must be >= 0", cat)
		}
	}
	return nil
}
