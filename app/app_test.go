package app

import (
	_ "github.com/skyhookml/netbuilder/backends/dryrun"
	"github.com/skyhookml/netbuilder/model"
	"github.com/skyhookml/netbuilder/netspec"

	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp(t *testing.T) {
	t.Helper()
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "test.sqlite3"), true))
	Config = DefaultConfig()
	Config.DefaultBackend = "dryrun"
	t.Cleanup(func() {
		for _, s := range ListSessions() {
			s.Close()
		}
	})
}

func request(t *testing.T, method string, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		buf.Write(netspec.JsonMarshal(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, x interface{}) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), x))
}

func createModel(t *testing.T, req CreateModelRequest) *DBModel {
	t.Helper()
	var m DBModel
	decode(t, request(t, "POST", "/models", req), &m)
	return &m
}

func TestCreateModel(t *testing.T) {
	setupApp(t)

	m := createModel(t, CreateModelRequest{
		Name:         "binary",
		Architecture: "MLP",
		Objective:    "binary",
		HiddenUnits:  16,
		NumInputs:    4,
	})
	require.NotNil(t, m.Spec)
	assert.Len(t, m.Spec.Layers, 3)
	assert.Equal(t, netspec.BinaryCrossentropy, m.Spec.Loss)
	assert.Equal(t, netspec.MLP, m.Config.Architecture)

	var got DBModel
	decode(t, request(t, "GET", fmt.Sprintf("/models/%d", m.ID), nil), &got)
	assert.Equal(t, m.Spec, got.Spec)

	w := request(t, "GET", fmt.Sprintf("/models/%d/spec?format=text", m.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sigmoid")

	var models []*DBModel
	decode(t, request(t, "GET", "/models", nil), &models)
	assert.Len(t, models, 1)
}

func TestCreateModelInvalid(t *testing.T) {
	setupApp(t)

	for _, req := range []CreateModelRequest{
		{Architecture: "CNN", Objective: "binary", HiddenUnits: 8},
		{Architecture: "MLP", Objective: "ordinal", HiddenUnits: 8},
		{Architecture: "MLP", Objective: "binary", HiddenUnits: 0},
		{Architecture: "LSTM", Objective: "binary", HiddenUnits: 8, NumInputs: 12},
		{Architecture: "LSTM", Objective: "binary", HiddenUnits: 8, NumInputs: 41, Timesteps: 10},
	} {
		w := request(t, "POST", "/models", req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%+v", req)
	}
	assert.Empty(t, ListModels())

	w := request(t, "GET", "/models/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDatasetUpload(t *testing.T) {
	setupApp(t)
	m := createModel(t, CreateModelRequest{Architecture: "MLP", Objective: "continuous", HiddenUnits: 4, NumInputs: 1, NumOutputs: 1})

	w := request(t, "POST", fmt.Sprintf("/models/%d/dataset", m.ID), DatasetRequest{
		Inputs:  [][]float64{{1}, {2}},
		Targets: [][]float64{{1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, GetModel(m.ID).GetDataset())

	var ds DBDataset
	decode(t, request(t, "POST", fmt.Sprintf("/models/%d/dataset", m.ID), DatasetRequest{
		Inputs:  [][]float64{{1}, {2}, {3}, {4}},
		Targets: [][]float64{{2}, {4}, {6}, {8}},
	}), &ds)
	assert.Equal(t, 0.8, ds.SplitRatio)
	assert.Len(t, ds.Inputs, 4)
}

func waitJob(t *testing.T, id int) *DBJob {
	t.Helper()
	var job *DBJob
	require.Eventually(t, func() bool {
		job = GetJob(id)
		return job != nil && job.Done
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestSessionLifecycle(t *testing.T) {
	setupApp(t)
	m := createModel(t, CreateModelRequest{Architecture: "MLP", Objective: "continuous", HiddenUnits: 8, NumInputs: 2, NumOutputs: 1})

	var inputs, targets [][]float64
	for i := 0; i < 10; i++ {
		inputs = append(inputs, []float64{float64(i), float64(2 * i)})
		targets = append(targets, []float64{float64(3 * i)})
	}
	w := request(t, "POST", fmt.Sprintf("/models/%d/dataset", m.ID), DatasetRequest{Inputs: inputs, Targets: targets})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var s Session
	decode(t, request(t, "POST", fmt.Sprintf("/models/%d/sessions", m.ID), SessionRequest{}), &s)
	assert.Equal(t, "dryrun", s.Backend)
	assert.Equal(t, m.ID, s.ModelID)
	require.NotNil(t, GetSession(s.UUID))
	assert.Equal(t, 8, GetSession(s.UUID).Model.TrainSet().Len())

	// model with an open session cannot be deleted
	w = request(t, "DELETE", fmt.Sprintf("/models/%d", m.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	var job DBJob
	decode(t, request(t, "POST", "/sessions/"+s.UUID+"/train", TrainRequest{Epochs: 3}), &job)
	assert.Equal(t, "train", job.Type)
	done := waitJob(t, job.ID)
	assert.Empty(t, done.Error)
	var state netspec.TrainJobState
	netspec.JsonUnmarshal([]byte(done.State), &state)
	assert.Equal(t, 3, state.Epochs)
	assert.Len(t, state.Loss, 3)

	var eval netspec.Evaluation
	decode(t, request(t, "POST", "/sessions/"+s.UUID+"/test", TestRequest{}), &eval)
	// zero predictions on targets 24 and 27
	assert.InDelta(t, (24.0*24+27*27)/2, eval.Loss, 1e-9)

	var decision DecisionResponse
	decode(t, request(t, "POST", "/sessions/"+s.UUID+"/decision", DecisionRequest{Input: []float64{1, 2, 3, 4}}), &decision)
	assert.Equal(t, [][]float64{{0}, {0}}, decision.Prediction)

	w = request(t, "POST", "/sessions/"+s.UUID+"/decision", DecisionRequest{Input: []float64{1, 2, 3}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var sanity SanityResponse
	decode(t, request(t, "POST", "/sessions/"+s.UUID+"/sanity", nil), &sanity)
	assert.False(t, sanity.OK)
	assert.Equal(t, model.ErrDegenerateModel.Error(), sanity.Error)

	w = request(t, "DELETE", "/sessions/"+s.UUID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, GetSession(s.UUID))

	w = request(t, "DELETE", fmt.Sprintf("/models/%d", m.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, GetModel(m.ID))
}

func TestSessionWithoutDataset(t *testing.T) {
	setupApp(t)
	m := createModel(t, CreateModelRequest{Architecture: "MLP", Objective: "categorical", HiddenUnits: 8, NumInputs: 3, NumOutputs: 2})

	var s Session
	decode(t, request(t, "POST", fmt.Sprintf("/models/%d/sessions", m.ID), SessionRequest{}), &s)

	w := request(t, "POST", "/sessions/"+s.UUID+"/train", TrainRequest{Epochs: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(t, "POST", "/sessions/"+s.UUID+"/train", TrainRequest{Epochs: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// explicit data works without a stored dataset
	var job DBJob
	decode(t, request(t, "POST", "/sessions/"+s.UUID+"/train", TrainRequest{
		Epochs:  2,
		Inputs:  [][]float64{{1, 2, 3}, {4, 5, 6}},
		Targets: [][]float64{{1, 0}, {0, 1}},
	}), &job)
	done := waitJob(t, job.ID)
	assert.Empty(t, done.Error)

	w = request(t, "POST", "/sessions/"+s.UUID+"/test", TestRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionUnknownBackend(t *testing.T) {
	setupApp(t)
	m := createModel(t, CreateModelRequest{Architecture: "MLP", Objective: "binary", HiddenUnits: 8, NumInputs: 3})

	w := request(t, "POST", fmt.Sprintf("/models/%d/sessions", m.ID), SessionRequest{Backend: "torch"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ListSessions())

	w = request(t, "POST", "/sessions/nope/train", TrainRequest{Epochs: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStopJob(t *testing.T) {
	setupApp(t)
	job := NewJob("test", "train", "")
	stopped := false
	job.AttachCancel(func() { stopped = true })

	w := request(t, "POST", fmt.Sprintf("/jobs/%d/stop", job.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, stopped)

	job.SetDone(nil)
	w = request(t, "POST", fmt.Sprintf("/jobs/%d/stop", job.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var jobs []*DBJob
	decode(t, request(t, "GET", "/jobs", nil), &jobs)
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].Done)
}

func TestInitDBTerminatesRunningJobs(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "test.sqlite3")
	require.NoError(t, InitDB(fname, true))
	job := NewJob("interrupted", "train", "")
	require.NoError(t, InitDB(fname, false))

	job = GetJob(job.ID)
	assert.True(t, job.Done)
	assert.Equal(t, "terminated", job.Error)
}

func TestBackendsAndEnums(t *testing.T) {
	setupApp(t)

	var backends []string
	decode(t, request(t, "GET", "/backends", nil), &backends)
	assert.Contains(t, backends, "dryrun")

	var enums struct {
		Architectures []netspec.Architecture
		Objectives    []netspec.Objective
	}
	decode(t, request(t, "GET", "/enums", nil), &enums)
	assert.Equal(t, netspec.Architectures, enums.Architectures)
	assert.Equal(t, netspec.Objectives, enums.Objectives)
}

func TestBroadcastWithoutSocketServer(t *testing.T) {
	setupApp(t)
	job := NewJob("test", "train", "")
	// no socket.io server in tests; updates are still persisted
	job.UpdateState(`{"Epochs":1}`)
	assert.Equal(t, `{"Epochs":1}`, GetJob(job.ID).State)
}

func TestDeleteModelRacesSession(t *testing.T) {
	setupApp(t)
	m := createModel(t, CreateModelRequest{Architecture: "MLP", Objective: "binary", HiddenUnits: 4, NumInputs: 2})
	dbModel := GetModel(m.ID)

	s, err := NewSession(context.Background(), dbModel, SessionRequest{})
	require.NoError(t, err)
	assert.Same(t, s, DeleteModel(dbModel))
	assert.NotNil(t, GetModel(m.ID))

	require.NoError(t, s.Close())
	assert.Nil(t, DeleteModel(dbModel))
	assert.Nil(t, GetModel(m.ID))

	// a session compiled from a model deleted in the meantime is not registered
	_, err = NewSession(context.Background(), dbModel, SessionRequest{})
	assert.Error(t, err)
	assert.Empty(t, ListSessions())
}
