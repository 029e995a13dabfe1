package model

// Core domain types for the redistribution engine.

// FoodCategories is the fixed set of category labels an item's weight is
// broken down into. Order matters: per-category results are reported in
// this order.
var FoodCategories = []string{
	"dairy",
	"meat",
	"produce",
	"grain",
	"processed",
	"non-perishables",
	"hygiene",
}

// Item is a single donated lot. Categories maps a food-category label to
// the pounds of that category inside the item; the values sum to at most
// Weight. Items are immutable once created.
type Item struct {
	Weight     float64            `json:"weight"`
	Categories map[string]float64 `json:"categories,omitempty"`
}

// Donor offers an ordered list of items. Partner marks network-partner
// donors whose food may only go to partner agencies.
type Donor struct {
	Name    string `json:"name"`
	Partner bool   `json:"partner,omitempty"`
	Items   []Item `json:"items"`
}

// PartnerTier is an agency's partnership compatibility tag.
type PartnerTier string

const (
	// TierNone marks agencies outside the partner network.
	TierNone PartnerTier = "NFB"
	// TierExclusive and TierNonExclusive are the two partner classes;
	// both may receive food from partner donors.
	TierExclusive    PartnerTier = "FBE"
	TierNonExclusive PartnerTier = "FBNE"
)

// Agency receives allocations. ServedPerWk is the fairness weight: meals
// served per week. Zero or negative means unreported; the weight
// precomputation substitutes the batch median.
type Agency struct {
	Name        string      `json:"name"`
	ServedPerWk float64     `json:"servedPerWk"`
	Tier        PartnerTier `json:"tier,omitempty"`
}

// Window is a driver availability slot in discrete day/period labels.
type Window struct {
	Day    int `json:"day"`
	Period int `json:"period"`
}

// Driver carries items from donors to agencies. Only the optimization
// formulation uses drivers.
type Driver struct {
	Name     string   `json:"name"`
	Capacity float64  `json:"capacity,omitempty"` // pounds
	Windows  []Window `json:"windows,omitempty"`
}

// ItemRef identifies an item by donor index and position within that
// donor's item list.
type ItemRef struct {
	Donor int `json:"donor"`
	Item  int `json:"item"`
}

// Allocation maps agency index to the item refs assigned to it. Each ref
// appears in at most one agency's list across the whole structure.
type Allocation map[int][]ItemRef

// TotalItems counts the refs across all agencies.
func (a Allocation) TotalItems() int {
	n := 0
	for _, refs := range a {
		n += len(refs)
	}
	return n
}

// Dataset is one input batch: entities plus the donor×agency adjacency
// matrix produced by upstream ingestion.
type Dataset struct {
	ID        string   `json:"id,omitempty"`
	Donors    []Donor  `json:"donors"`
	Agencies  []Agency `json:"agencies"`
	Drivers   []Driver `json:"drivers,omitempty"`
	Adjacency [][]bool `json:"adjacency"` // [donor][agency]
}

// AllocateRequest selects the algorithm and run parameters.
type AllocateRequest struct {
	DatasetID       string             `json:"datasetId"`
	Algorithm       string             `json:"algorithm"` // greedy | egalitarian | both
	TimeSteps       []int              `json:"timeSteps,omitempty"`
	CategoryWeights map[string]float64 `json:"categoryWeights,omitempty"`
	TimeBudgetMs    int                `json:"timeBudgetMs,omitempty"`
}

// RunResult is one allocator execution over a dataset.
type RunResult struct {
	ID         string             `json:"id"`
	DatasetID  string             `json:"datasetId"`
	Algorithm  string             `json:"algorithm"`
	Status     string             `json:"status"`
	Allocation Allocation         `json:"allocation"`
	Utilities  []float64          `json:"utilities"`
	MinRatios  map[string]float64 `json:"minRatios,omitempty"` // per-category minima (optimization path)
	Summary    *FairnessSummary   `json:"summary,omitempty"`
	ElapsedMs  int64              `json:"elapsedMs"`
}

// AgencyReport is the per-agency slice of a fairness summary.
type AgencyReport struct {
	Name      string  `json:"name"`
	Pounds    float64 `json:"pounds"`
	Weight    float64 `json:"weight"`
	PerPerson float64 `json:"perPerson"`
	Items     int     `json:"items"`
}

// FairnessSummary aggregates a run into batch-level fairness statistics.
type FairnessSummary struct {
	Agencies       []AgencyReport     `json:"agencies"`
	TotalPounds    float64            `json:"totalPounds"`
	AgenciesServed int                `json:"agenciesServed"`
	MinPerPerson   float64            `json:"minPerPerson"`
	MaxPerPerson   float64            `json:"maxPerPerson"`
	AvgPerPerson   float64            `json:"avgPerPerson"`
	RangePerPerson float64            `json:"rangePerPerson"`
	MinRatios      map[string]float64 `json:"minRatios,omitempty"`
}
