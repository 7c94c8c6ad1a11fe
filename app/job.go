package app

import (
	"github.com/skyhookml/netbuilder/netspec"

	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	sync "github.com/sasha-s/go-deadlock"
)

type DBJob struct{ netspec.Job }

const JobFastQuery = "SELECT id, name, type, metadata, start_time, done, error, '' FROM jobs"
const JobQuery = "SELECT id, name, type, metadata, start_time, done, error, state FROM jobs"

func jobListHelper(rows *Rows) []*DBJob {
	jobs := []*DBJob{}
	for rows.Next() {
		var j DBJob
		rows.Scan(&j.ID, &j.Name, &j.Type, &j.Metadata, &j.StartTime, &j.Done, &j.Error, &j.State)
		jobs = append(jobs, &j)
	}
	return jobs
}

func ListJobs() []*DBJob {
	rows := db.Query(JobFastQuery + " ORDER BY id DESC")
	return jobListHelper(rows)
}

func GetJob(id int) *DBJob {
	rows := db.Query(JobQuery+" WHERE id = ?", id)
	jobs := jobListHelper(rows)
	if len(jobs) == 1 {
		return jobs[0]
	} else {
		return nil
	}
}

func NewJob(name string, t string, metadata string) *DBJob {
	res := db.Exec(
		"INSERT INTO jobs (name, type, metadata, start_time) VALUES (?, ?, ?, datetime('now'))",
		name, t, metadata,
	)
	return GetJob(res.LastInsertId())
}

func (j *DBJob) UpdateState(state string) {
	j.State = state
	db.Exec("UPDATE jobs SET state = ? WHERE id = ?", state, j.ID)
	broadcastJob(j)
}

func (j *DBJob) SetDone(err error) {
	j.Done = true
	if err != nil {
		j.Error = err.Error()
	}
	db.Exec("UPDATE jobs SET done = 1, error = ? WHERE id = ?", j.Error, j.ID)
	jobMu.Lock()
	delete(runningJobs, j.ID)
	jobMu.Unlock()
	broadcastJob(j)
}

// cancel functions of jobs that are still running
var runningJobs = make(map[int]context.CancelFunc)
var jobMu sync.Mutex

func (j *DBJob) AttachCancel(cancel context.CancelFunc) {
	jobMu.Lock()
	runningJobs[j.ID] = cancel
	jobMu.Unlock()
}

func (j *DBJob) Stop() error {
	jobMu.Lock()
	cancel := runningJobs[j.ID]
	jobMu.Unlock()
	if cancel == nil {
		return fmt.Errorf("job %d is not running", j.ID)
	}
	cancel()
	return nil
}

func init() {
	Router.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		netspec.JsonResponse(w, ListJobs())
	}).Methods("GET")

	Router.HandleFunc("/jobs/{job_id}", func(w http.ResponseWriter, r *http.Request) {
		job := jobFromRequest(w, r)
		if job == nil {
			return
		}
		netspec.JsonResponse(w, job)
	}).Methods("GET")

	Router.HandleFunc("/jobs/{job_id}/stop", func(w http.ResponseWriter, r *http.Request) {
		job := jobFromRequest(w, r)
		if job == nil {
			return
		}
		if err := job.Stop(); err != nil {
			log.Printf("[job-stop] error stopping job: %v", err)
			http.Error(w, fmt.Sprintf("error stopping job: %v", err), 404)
			return
		}
	}).Methods("POST")
}

func jobFromRequest(w http.ResponseWriter, r *http.Request) *DBJob {
	jobID, err := netspec.ParseInt(mux.Vars(r)["job_id"])
	if err != nil {
		http.Error(w, err.Error(), 400)
		return nil
	}
	job := GetJob(jobID)
	if job == nil {
		http.Error(w, "no such job", 404)
		return nil
	}
	return job
}
