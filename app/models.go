package app

import (
	"github.com/skyhookml/netbuilder/netspec"

	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

type CreateModelRequest struct {
	Name         string
	Architecture string
	Objective    string
	HiddenUnits  int
	NumInputs    int
	NumOutputs   int
	Timesteps    int
}

func (req CreateModelRequest) Configuration() (netspec.ModelConfiguration, error) {
	cfg, err := netspec.ParseConfiguration(req.Architecture, req.Objective, req.HiddenUnits)
	if err != nil {
		return cfg, err
	}
	cfg.NumInputs = req.NumInputs
	cfg.NumOutputs = req.NumOutputs
	cfg.Timesteps = req.Timesteps
	return cfg, nil
}

type DatasetRequest struct {
	Inputs  [][]float64
	Targets [][]float64
	// Fraction of rows used for training; 0 means the configured default.
	SplitRatio float64
}

// configError reports whether err is a rejected configuration, as opposed
// to an internal failure.
func configError(err error) bool {
	return errors.Is(err, netspec.ErrInvalidArchitecture) ||
		errors.Is(err, netspec.ErrInvalidObjective) ||
		errors.Is(err, netspec.ErrInvalidConfiguration)
}

func modelFromRequest(w http.ResponseWriter, r *http.Request) *DBModel {
	modelID, err := netspec.ParseInt(mux.Vars(r)["model_id"])
	if err != nil {
		http.Error(w, err.Error(), 400)
		return nil
	}
	model := GetModel(modelID)
	if model == nil {
		http.Error(w, "no such model", 404)
		return nil
	}
	return model
}

func init() {
	Router.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		netspec.JsonResponse(w, ListModels())
	}).Methods("GET")

	Router.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		var request CreateModelRequest
		if err := netspec.ParseJsonRequest(w, r, &request); err != nil {
			return
		}
		cfg, err := request.Configuration()
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		model, err := NewModel(request.Name, cfg)
		if err != nil {
			if configError(err) {
				http.Error(w, err.Error(), 400)
			} else {
				http.Error(w, err.Error(), 500)
			}
			return
		}
		log.Printf("[models] created model %d (%s): %s/%s with %d layers", model.ID, model.Name, cfg.Architecture, cfg.Objective, len(model.Spec.Layers))
		netspec.JsonResponse(w, model)
	}).Methods("POST")

	Router.HandleFunc("/models/{model_id}", func(w http.ResponseWriter, r *http.Request) {
		model := modelFromRequest(w, r)
		if model == nil {
			return
		}
		netspec.JsonResponse(w, model)
	}).Methods("GET")

	Router.HandleFunc("/models/{model_id}", func(w http.ResponseWriter, r *http.Request) {
		model := modelFromRequest(w, r)
		if model == nil {
			return
		}
		if s := DeleteModel(model); s != nil {
			http.Error(w, fmt.Sprintf("model has open session %s", s.UUID), 409)
			return
		}
	}).Methods("DELETE")

	Router.HandleFunc("/models/{model_id}/spec", func(w http.ResponseWriter, r *http.Request) {
		model := modelFromRequest(w, r)
		if model == nil {
			return
		}
		if r.URL.Query().Get("format") == "text" {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte(model.Spec.Summary()))
			return
		}
		netspec.JsonResponse(w, model.Spec)
	}).Methods("GET")

	Router.HandleFunc("/models/{model_id}/dataset", func(w http.ResponseWriter, r *http.Request) {
		model := modelFromRequest(w, r)
		if model == nil {
			return
		}
		var request DatasetRequest
		if err := netspec.ParseJsonRequest(w, r, &request); err != nil {
			return
		}
		if request.SplitRatio == 0 {
			request.SplitRatio = Config.SplitRatio
		}
		ds, err := netspec.NewDataset(request.Inputs, request.Targets)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		if _, _, err := ds.Split(request.SplitRatio); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		model.SetDataset(request.Inputs, request.Targets, request.SplitRatio)
		netspec.JsonResponse(w, model.GetDataset())
	}).Methods("POST")
}
