package app

import (
	"github.com/skyhookml/netbuilder/model"
	"github.com/skyhookml/netbuilder/netspec"

	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	gouuid "github.com/google/uuid"
	"github.com/gorilla/mux"
	sync "github.com/sasha-s/go-deadlock"
)

// A Session is a model compiled on a backend, ready to train and predict.
type Session struct {
	UUID    string
	ModelID int
	Backend string
	Created time.Time

	Model  *model.Model `json:"-"`
	ctx    context.Context
	cancel context.CancelFunc
}

var sessions = make(map[string]*Session)
var sessionsMu sync.Mutex

type SessionRequest struct {
	// Backend name; empty for Config.DefaultBackend.
	Backend   string
	BatchSize int
}

// NewSession compiles the stored model on the named backend. The stored
// dataset, if any, is split and becomes the default for train and test.
func NewSession(ctx context.Context, dbModel *DBModel, req SessionRequest) (*Session, error) {
	backendName := req.Backend
	if backendName == "" {
		backendName = Config.DefaultBackend
	}
	backend, err := netspec.GetBackend(backendName)
	if err != nil {
		return nil, err
	}
	batchSize := req.BatchSize
	if batchSize == 0 {
		batchSize = Config.BatchSize
	}
	opts := []model.Option{
		model.WithBatchSize(batchSize),
		model.WithSplitRatio(Config.SplitRatio),
		model.WithVerbose(true),
	}

	var data *netspec.Dataset
	if stored := dbModel.GetDataset(); stored != nil {
		data, err = netspec.NewDataset(stored.Inputs, stored.Targets)
		if err != nil {
			return nil, fmt.Errorf("stored dataset is invalid: %v", err)
		}
		opts = append(opts, model.WithSplitRatio(stored.SplitRatio))
	}

	m, err := model.New(ctx, backend, dbModel.Config, data, opts...)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		UUID:    gouuid.New().String(),
		ModelID: dbModel.ID,
		Backend: backendName,
		Created: time.Now(),
		Model:   m,
		ctx:     sctx,
		cancel:  cancel,
	}
	sessionsMu.Lock()
	// the model may have been deleted while compiling
	if GetModel(dbModel.ID) == nil {
		sessionsMu.Unlock()
		cancel()
		m.Close()
		return nil, fmt.Errorf("model %d was deleted", dbModel.ID)
	}
	sessions[s.UUID] = s
	sessionsMu.Unlock()
	log.Printf("[session %s] compiled model %d on %s", s.UUID, dbModel.ID, backendName)
	return s, nil
}

func GetSession(uuid string) *Session {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	return sessions[uuid]
}

func ListSessions() []*Session {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	l := []*Session{}
	for _, s := range sessions {
		l = append(l, s)
	}
	return l
}

// DeleteModel deletes m unless a session is open on it, in which case that
// session is returned and nothing is deleted.
func DeleteModel(m *DBModel) *Session {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	for _, s := range sessions {
		if s.ModelID == m.ID {
			return s
		}
	}
	m.Delete()
	return nil
}

// Close stops any job running on the session and releases the backend model.
func (s *Session) Close() error {
	sessionsMu.Lock()
	delete(sessions, s.UUID)
	sessionsMu.Unlock()
	s.cancel()
	return s.Model.Close()
}

type TrainRequest struct {
	Epochs int
	// Optional; if both are empty the stored dataset's training split is used.
	Inputs  [][]float64
	Targets [][]float64
}

type TestRequest struct {
	Inputs  [][]float64
	Targets [][]float64
}

type DecisionRequest struct {
	// One or more samples laid out back to back.
	Input []float64
}

type DecisionResponse struct {
	Prediction [][]float64
}

type SanityResponse struct {
	OK    bool
	Error string
}

func optionalDataset(inputs, targets [][]float64) (*netspec.Dataset, error) {
	if len(inputs) == 0 && len(targets) == 0 {
		return nil, nil
	}
	return netspec.NewDataset(inputs, targets)
}

// Train starts a train job in the background and returns it.
func (s *Session) Train(epochs int, data *netspec.Dataset) *DBJob {
	job := NewJob(fmt.Sprintf("train session %s", s.UUID), "train", string(netspec.JsonMarshal(map[string]interface{}{
		"Session": s.UUID,
		"ModelID": s.ModelID,
		"Epochs":  epochs,
	})))
	ctx, cancel := context.WithCancel(s.ctx)
	job.AttachCancel(cancel)
	snapshot := *job

	go func() {
		defer cancel()
		var state netspec.TrainJobState
		_, err := s.Model.Train(ctx, epochs, data, func(epoch int, loss float64, metric float64) {
			state.Update(epoch, loss, metric)
			job.UpdateState(string(netspec.JsonMarshal(state)))
		})
		if err != nil {
			log.Printf("[session %s] train error: %v", s.UUID, err)
		}
		job.SetDone(err)
	}()
	return &snapshot
}

// Test evaluates synchronously and records the result as a finished job.
func (s *Session) Test(ctx context.Context, data *netspec.Dataset) (*netspec.Evaluation, error) {
	job := NewJob(fmt.Sprintf("test session %s", s.UUID), "test", string(netspec.JsonMarshal(map[string]interface{}{
		"Session": s.UUID,
		"ModelID": s.ModelID,
	})))
	eval, err := s.Model.Test(ctx, data)
	if err == nil {
		job.UpdateState(string(netspec.JsonMarshal(netspec.TrainJobState{Evaluation: eval})))
	}
	job.SetDone(err)
	return eval, err
}

func sessionFromRequest(w http.ResponseWriter, r *http.Request) *Session {
	s := GetSession(mux.Vars(r)["uuid"])
	if s == nil {
		http.Error(w, "no such session", 404)
		return nil
	}
	return s
}

func init() {
	Router.HandleFunc("/models/{model_id}/sessions", func(w http.ResponseWriter, r *http.Request) {
		dbModel := modelFromRequest(w, r)
		if dbModel == nil {
			return
		}
		var request SessionRequest
		if err := netspec.ParseJsonRequest(w, r, &request); err != nil {
			return
		}
		s, err := NewSession(r.Context(), dbModel, request)
		if err != nil {
			log.Printf("[models] error compiling model %d: %v", dbModel.ID, err)
			http.Error(w, err.Error(), 400)
			return
		}
		netspec.JsonResponse(w, s)
	}).Methods("POST")

	Router.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		netspec.JsonResponse(w, ListSessions())
	}).Methods("GET")

	Router.HandleFunc("/sessions/{uuid}", func(w http.ResponseWriter, r *http.Request) {
		s := sessionFromRequest(w, r)
		if s == nil {
			return
		}
		if err := s.Close(); err != nil {
			log.Printf("[session %s] close error: %v", s.UUID, err)
		}
	}).Methods("DELETE")

	Router.HandleFunc("/sessions/{uuid}/train", func(w http.ResponseWriter, r *http.Request) {
		s := sessionFromRequest(w, r)
		if s == nil {
			return
		}
		var request TrainRequest
		if err := netspec.ParseJsonRequest(w, r, &request); err != nil {
			return
		}
		if request.Epochs <= 0 {
			http.Error(w, "epochs must be positive", 400)
			return
		}
		data, err := optionalDataset(request.Inputs, request.Targets)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		if data == nil && s.Model.TrainSet() == nil {
			http.Error(w, model.ErrNoDataset.Error(), 400)
			return
		}
		netspec.JsonResponse(w, s.Train(request.Epochs, data))
	}).Methods("POST")

	Router.HandleFunc("/sessions/{uuid}/test", func(w http.ResponseWriter, r *http.Request) {
		s := sessionFromRequest(w, r)
		if s == nil {
			return
		}
		var request TestRequest
		if err := netspec.ParseJsonRequest(w, r, &request); err != nil {
			return
		}
		data, err := optionalDataset(request.Inputs, request.Targets)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		eval, err := s.Test(r.Context(), data)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		netspec.JsonResponse(w, eval)
	}).Methods("POST")

	Router.HandleFunc("/sessions/{uuid}/decision", func(w http.ResponseWriter, r *http.Request) {
		s := sessionFromRequest(w, r)
		if s == nil {
			return
		}
		var request DecisionRequest
		if err := netspec.ParseJsonRequest(w, r, &request); err != nil {
			return
		}
		pred, err := s.Model.Decision(r.Context(), request.Input)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		netspec.JsonResponse(w, DecisionResponse{Prediction: netspec.Rows(pred)})
	}).Methods("POST")

	Router.HandleFunc("/sessions/{uuid}/sanity", func(w http.ResponseWriter, r *http.Request) {
		s := sessionFromRequest(w, r)
		if s == nil {
			return
		}
		var response SanityResponse
		if err := s.Model.SanityCheck(r.Context()); err != nil {
			response.Error = err.Error()
		} else {
			response.OK = true
		}
		netspec.JsonResponse(w, response)
	}).Methods("POST")
}
