package app

import (
	"github.com/skyhookml/netbuilder/netspec"

	"fmt"
	"log"
	"net/http"

	"github.com/googollee/go-socket.io"
	"github.com/gorilla/mux"
)

var SetupFuncs []func(*socketio.Server)
var Router = mux.NewRouter()

var socketServer *socketio.Server

func jobRoom(id int) string {
	return fmt.Sprintf("job-%d", id)
}

func broadcastJob(j *DBJob) {
	if socketServer == nil {
		return
	}
	socketServer.BroadcastToRoom("/", jobRoom(j.ID), "job-update", j)
}

func init() {
	SetupFuncs = append(SetupFuncs, func(server *socketio.Server) {
		socketServer = server
		// clients subscribe to the jobs they are displaying
		server.OnEvent("/", "subscribe", func(s socketio.Conn, jobID int) {
			s.Join(jobRoom(jobID))
		})
		server.OnEvent("/", "unsubscribe", func(s socketio.Conn, jobID int) {
			s.Leave(jobRoom(jobID))
		})
		server.OnDisconnect("/", func(s socketio.Conn, reason string) {
			if netspec.Debug {
				log.Printf("[socket.io] %s disconnected: %s", s.ID(), reason)
			}
		})
	})

	Router.HandleFunc("/backends", func(w http.ResponseWriter, r *http.Request) {
		netspec.JsonResponse(w, netspec.BackendNames())
	}).Methods("GET")

	Router.HandleFunc("/enums", func(w http.ResponseWriter, r *http.Request) {
		netspec.JsonResponse(w, map[string]interface{}{
			"Architectures": netspec.Architectures,
			"Objectives":    netspec.Objectives,
		})
	}).Methods("GET")
}
