package alloc

import "fairshare/internal/model"

// Summarize aggregates an allocation/utility pair into batch-level
// fairness statistics. Pure; tolerates an empty allocation (all-zero
// summary). Batch statistics cover only agencies that reported a valid
// weight, matching how the per-capita ratio is defined.
func Summarize(agencies []model.Agency, allocation model.Allocation, utilities []float64, minRatios map[string]float64) *model.FairnessSummary {
	s := &model.FairnessSummary{
		Agencies: make([]model.AgencyReport, len(agencies)),
	}
	if len(minRatios) > 0 {
		s.MinRatios = minRatios
	}
	weights := AgencyWeights(agencies)

	var perPerson []float64
	for a, agency := range agencies {
		utility := 0.0
		if a < len(utilities) {
			utility = utilities[a]
		}
		rep := model.AgencyReport{
			Name:   agency.Name,
			Pounds: utility,
			Weight: weights[a],
			Items:  len(allocation[a]),
		}
		if weights[a] > 0 {
			rep.PerPerson = utility / weights[a]
		}
		s.Agencies[a] = rep

		s.TotalPounds += utility
		if utility > 0 {
			s.AgenciesServed++
		}
		if agency.ServedPerWk > 0 {
			perPerson = append(perPerson, rep.PerPerson)
		}
	}

	if len(perPerson) == 0 {
		return s
	}
	s.MinPerPerson = perPerson[0]
	s.MaxPerPerson = perPerson[0]
	sum := 0.0
	for _, v := range perPerson {
		if v < s.MinPerPerson {
			s.MinPerPerson = v
		}
		if v > s.MaxPerPerson {
			s.MaxPerPerson = v
		}
		sum += v
	}
	s.AvgPerPerson = sum / float64(len(perPerson))
	s.RangePerPerson = s.MaxPerPerson - s.MinPerPerson
	return s
}
