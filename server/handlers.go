package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/findyourpaths/phonespecs/catalog"
	"github.com/findyourpaths/phonespecs/dataset"
	"github.com/samber/lo"
)

// MinGroupSize is the smallest prefix group /get_feature_groups reports.
const MinGroupSize = 2

type FeaturesResponse struct {
	Features []string `json:"features"`
}

type FeatureGroupsResponse struct {
	Groups []catalog.FeatureGroup `json:"groups"`
}

type handlers struct {
	featuresPath string
	excluded     []string
}

func (h *handlers) home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("API Home Page"))
}

// features reads the dataset header on every call so regenerated datasets
// are served without a restart.
func (h *handlers) features() ([]string, error) {
	cols, err := dataset.ReadHeader(h.featuresPath)
	if err != nil {
		return nil, err
	}
	return lo.Without(cols, h.excluded...), nil
}

func (h *handlers) getFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := h.features()
	if err != nil {
		slog.Error("failed to read features", "path", h.featuresPath, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusOK, FeaturesResponse{Features: features})
}

func (h *handlers) getFeatureGroups(w http.ResponseWriter, r *http.Request) {
	features, err := h.features()
	if err != nil {
		slog.Error("failed to read features", "path", h.featuresPath, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusOK, FeatureGroupsResponse{Groups: catalog.FeatureGroups(features, MinGroupSize)})
}

// predict echoes its "param" back; there is no model behind it.
func (h *handlers) predict(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	param, ok := req["param"]
	if !ok {
		param = ""
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"your param": param})
}

// respondWithJSON writes payload with non-ASCII and HTML characters left
// as they are.
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		http.Error(w, "Failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}
