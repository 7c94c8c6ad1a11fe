package app

import (
	"github.com/skyhookml/netbuilder/netspec"

	"time"
)

type DBModel struct {
	ID      int
	Name    string
	Config  netspec.ModelConfiguration
	Spec    *netspec.CompiledModelSpec
	Created time.Time
}

type DBDataset struct {
	ModelID    int
	Inputs     [][]float64
	Targets    [][]float64
	SplitRatio float64
}

const ModelQuery = "SELECT id, name, config, spec, created FROM models"

func modelListHelper(rows *Rows) []*DBModel {
	models := []*DBModel{}
	for rows.Next() {
		var model DBModel
		var configRaw, specRaw string
		rows.Scan(&model.ID, &model.Name, &configRaw, &specRaw, &model.Created)
		netspec.JsonUnmarshal([]byte(configRaw), &model.Config)
		netspec.JsonUnmarshal([]byte(specRaw), &model.Spec)
		models = append(models, &model)
	}
	return models
}

func ListModels() []*DBModel {
	rows := db.Query(ModelQuery + " ORDER BY id")
	return modelListHelper(rows)
}

func GetModel(id int) *DBModel {
	rows := db.Query(ModelQuery+" WHERE id = ?", id)
	models := modelListHelper(rows)
	if len(models) == 1 {
		return models[0]
	} else {
		return nil
	}
}

// NewModel builds the spec for cfg and stores both. Nothing is stored if
// the configuration is rejected.
func NewModel(name string, cfg netspec.ModelConfiguration) (*DBModel, error) {
	spec, err := netspec.Build(cfg)
	if err != nil {
		return nil, err
	}
	res := db.Exec(
		"INSERT INTO models (name, config, spec, created) VALUES (?, ?, ?, ?)",
		name, string(netspec.JsonMarshal(cfg)), string(netspec.JsonMarshal(spec)), time.Now().UTC(),
	)
	return GetModel(res.LastInsertId()), nil
}

func (m *DBModel) Delete() {
	db.Transaction(func(tx Tx) {
		tx.Exec("DELETE FROM datasets WHERE model_id = ?", m.ID)
		tx.Exec("DELETE FROM models WHERE id = ?", m.ID)
	})
}

func (m *DBModel) SetDataset(inputs [][]float64, targets [][]float64, splitRatio float64) {
	inputsRaw := string(netspec.JsonMarshal(inputs))
	targetsRaw := string(netspec.JsonMarshal(targets))
	db.Exec(
		"INSERT OR REPLACE INTO datasets (model_id, inputs, targets, split_ratio) VALUES (?, ?, ?, ?)",
		m.ID, inputsRaw, targetsRaw, splitRatio,
	)
}

// GetDataset returns the stored dataset, or nil if none was uploaded.
func (m *DBModel) GetDataset() *DBDataset {
	ds := DBDataset{ModelID: m.ID}
	var inputsRaw, targetsRaw string
	ok := db.QueryRow(
		"SELECT inputs, targets, split_ratio FROM datasets WHERE model_id = ?", m.ID,
	).Scan(&inputsRaw, &targetsRaw, &ds.SplitRatio)
	if !ok {
		return nil
	}
	netspec.JsonUnmarshal([]byte(inputsRaw), &ds.Inputs)
	netspec.JsonUnmarshal([]byte(targetsRaw), &ds.Targets)
	return &ds
}
