package alloc

import "fairshare/internal/model"

// catKey indexes the per-item category breakdown.
type catKey struct {
	donor, item int
	category    string
}

// CategoryMatrix maps (donor, item, category) to pounds of that category
// in that item. Missing entries read as zero.
type CategoryMatrix map[catKey]float64

// CategoryQuantities builds the per-item category breakdown for every
// donor's items over the fixed category set.
func CategoryQuantities(donors []model.Donor) CategoryMatrix {
	q := CategoryMatrix{}
	for d, donor := range donors {
		for i, item := range donor.Items {
			for _, cat := range model.FoodCategories {
				if lbs, ok := item.Categories[cat]; ok && lbs > 0 {
					q[catKey{donor: d, item: i, category: cat}] = lbs
				}
			}
		}
	}
	return q
}

// At returns the pounds of category cat in item (d, i).
func (q CategoryMatrix) At(d, i int, cat string) float64 {
	return q[catKey{donor: d, item: i, category: cat}]
}
