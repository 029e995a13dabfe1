// Package ingest parses upstream CSV exports into datasets.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fairshare/internal/model"
)

// Items CSV: donor,partner,weight,<one column per food category>.
// Consecutive rows with the same donor name belong to one donor; the
// partner flag is taken from the donor's first row.
//
// Agencies CSV: name,servedPerWk,tier.
// Drivers CSV:  name,capacity.
// Adjacency CSV: donor,agency — each row marks one allowed pair; when no
// adjacency file is supplied every pair is allowed.

func readAll(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ingest: read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("ingest: csv needs a header and at least one row")
	}
	return rows, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func parseFloat(s, field string, line int) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("ingest: line %d: %s: %w", line, field, err)
	}
	return v, nil
}

// ParseDonors reads the items CSV and groups rows into donors.
func ParseDonors(r io.Reader) ([]model.Donor, error) {
	rows, err := readAll(r)
	if err != nil {
		return nil, err
	}
	header := rows[0]
	if len(header) < 3 || !strings.EqualFold(header[0], "donor") {
		return nil, fmt.Errorf("ingest: items csv: want header donor,partner,weight,<categories>")
	}
	cats := header[3:]
	for _, c := range cats {
		if !knownCategory(c) {
			return nil, fmt.Errorf("ingest: items csv: unknown category column %q", c)
		}
	}

	var donors []model.Donor
	index := map[string]int{}
	for n, row := range rows[1:] {
		line := n + 2
		if len(row) != len(header) {
			return nil, fmt.Errorf("ingest: line %d: want %d columns, got %d", line, len(header), len(row))
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			return nil, fmt.Errorf("ingest: line %d: empty donor name", line)
		}
		weight, err := parseFloat(row[2], "weight", line)
		if err != nil {
			return nil, err
		}
		item := model.Item{Weight: weight, Categories: map[string]float64{}}
		for ci, cat := range cats {
			lbs, err := parseFloat(row[3+ci], cat, line)
			if err != nil {
				return nil, err
			}
			if lbs > 0 {
				item.Categories[cat] = lbs
			}
		}
		di, ok := index[name]
		if !ok {
			di = len(donors)
			index[name] = di
			donors = append(donors, model.Donor{Name: name, Partner: parseBool(row[1])})
		}
		donors[di].Items = append(donors[di].Items, item)
	}
	return donors, nil
}

// ParseAgencies reads the agencies CSV.
func ParseAgencies(r io.Reader) ([]model.Agency, error) {
	rows, err := readAll(r)
	if err != nil {
		return nil, err
	}
	var out []model.Agency
	for n, row := range rows[1:] {
		line := n + 2
		if len(row) < 2 {
			return nil, fmt.Errorf("ingest: line %d: want name,servedPerWk,tier", line)
		}
		served, err := parseFloat(row[1], "servedPerWk", line)
		if err != nil {
			return nil, err
		}
		tier := model.TierNone
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			tier = model.PartnerTier(strings.ToUpper(strings.TrimSpace(row[2])))
		}
		out = append(out, model.Agency{Name: strings.TrimSpace(row[0]), ServedPerWk: served, Tier: tier})
	}
	return out, nil
}

// ParseDrivers reads the drivers CSV.
func ParseDrivers(r io.Reader) ([]model.Driver, error) {
	rows, err := readAll(r)
	if err != nil {
		return nil, err
	}
	var out []model.Driver
	for n, row := range rows[1:] {
		line := n + 2
		if len(row) < 1 || strings.TrimSpace(row[0]) == "" {
			return nil, fmt.Errorf("ingest: line %d: empty driver name", line)
		}
		var capacity float64
		if len(row) > 1 {
			v, err := parseFloat(row[1], "capacity", line)
			if err != nil {
				return nil, err
			}
			capacity = v
		}
		out = append(out, model.Driver{Name: strings.TrimSpace(row[0]), Capacity: capacity})
	}
	return out, nil
}

// ParseAdjacency reads donor,agency pair rows against the already-parsed
// entity lists.
func ParseAdjacency(r io.Reader, donors []model.Donor, agencies []model.Agency) ([][]bool, error) {
	rows, err := readAll(r)
	if err != nil {
		return nil, err
	}
	donorIdx := map[string]int{}
	for i, d := range donors {
		donorIdx[d.Name] = i
	}
	agencyIdx := map[string]int{}
	for i, a := range agencies {
		agencyIdx[a.Name] = i
	}
	adj := fullAdjacency(len(donors), len(agencies), false)
	for n, row := range rows[1:] {
		line := n + 2
		if len(row) < 2 {
			return nil, fmt.Errorf("ingest: line %d: want donor,agency", line)
		}
		di, ok := donorIdx[strings.TrimSpace(row[0])]
		if !ok {
			return nil, fmt.Errorf("ingest: line %d: unknown donor %q", line, row[0])
		}
		ai, ok := agencyIdx[strings.TrimSpace(row[1])]
		if !ok {
			return nil, fmt.Errorf("ingest: line %d: unknown agency %q", line, row[1])
		}
		adj[di][ai] = true
	}
	return adj, nil
}

// BuildDataset assembles the parsed parts; a nil adjacency means every
// pair is allowed.
func BuildDataset(donors []model.Donor, agencies []model.Agency, drivers []model.Driver, adj [][]bool) model.Dataset {
	if adj == nil {
		adj = fullAdjacency(len(donors), len(agencies), true)
	}
	return model.Dataset{Donors: donors, Agencies: agencies, Drivers: drivers, Adjacency: adj}
}

func fullAdjacency(nDonors, nAgencies int, val bool) [][]bool {
	adj := make([][]bool, nDonors)
	for i := range adj {
		adj[i] = make([]bool, nAgencies)
		for j := range adj[i] {
			adj[i][j] = val
		}
	}
	return adj
}

func knownCategory(c string) bool {
	for _, k := range model.FoodCategories {
		if strings.EqualFold(k, c) {
			return true
		}
	}
	return false
}
