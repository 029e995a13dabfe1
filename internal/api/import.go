package api

import (
	"mime/multipart"
	"net/http"

	"fairshare/internal/ingest"
	"fairshare/internal/model"
)

// ImportHandler handles POST /v1/datasets/import: a multipart form with
// an "items" and an "agencies" CSV, plus optional "drivers" and
// "adjacency" files. Missing adjacency means every pair is allowed.
func (s *Server) ImportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid multipart form", err.Error(), r.URL.Path)
		return
	}

	open := func(field string) (multipart.File, bool, error) {
		f, _, err := r.FormFile(field)
		if err == http.ErrMissingFile {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return f, true, nil
	}

	itemsF, ok, err := open("items")
	if err != nil || !ok {
		writeProblem(w, http.StatusBadRequest, "Missing items file", "form field \"items\" is required", r.URL.Path)
		return
	}
	defer func() { _ = itemsF.Close() }()
	donors, err := ingest.ParseDonors(itemsF)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid items file", err.Error(), r.URL.Path)
		return
	}

	agenciesF, ok, err := open("agencies")
	if err != nil || !ok {
		writeProblem(w, http.StatusBadRequest, "Missing agencies file", "form field \"agencies\" is required", r.URL.Path)
		return
	}
	defer func() { _ = agenciesF.Close() }()
	agencies, err := ingest.ParseAgencies(agenciesF)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid agencies file", err.Error(), r.URL.Path)
		return
	}

	var drivers []model.Driver
	if f, ok, err := open("drivers"); err == nil && ok {
		drivers, err = ingest.ParseDrivers(f)
		_ = f.Close()
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid drivers file", err.Error(), r.URL.Path)
			return
		}
	}

	var adjacency [][]bool
	if f, ok, err := open("adjacency"); err == nil && ok {
		adjacency, err = ingest.ParseAdjacency(f, donors, agencies)
		_ = f.Close()
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid adjacency file", err.Error(), r.URL.Path)
			return
		}
	}

	ds := ingest.BuildDataset(donors, agencies, drivers, adjacency)
	if err := validateDataset(&ds); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid dataset", err.Error(), r.URL.Path)
		return
	}
	id, err := s.Store.SaveDataset(r.Context(), ds)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       id,
		"donors":   len(ds.Donors),
		"agencies": len(ds.Agencies),
		"drivers":  len(ds.Drivers),
	})
}
