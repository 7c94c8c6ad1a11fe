package main

import (
	"github.com/skyhookml/netbuilder/app"
	"github.com/skyhookml/netbuilder/backends/keras"
	"github.com/skyhookml/netbuilder/netspec"

	_ "github.com/skyhookml/netbuilder/backends/dryrun"

	"github.com/googollee/go-socket.io"

	"flag"
	"log"
	"net/http"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used if empty)")
	envPath := flag.String("env", ".env", "dotenv file loaded before the config")
	addr := flag.String("addr", "", "bind address, overrides the config")
	initdb := flag.Bool("initdb", false, "initialize the database before starting up")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	netspec.Debug = *debug

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := app.LoadDotEnv(*envPath); err != nil {
		log.Fatalf("error loading %s: %v", *envPath, err)
	}
	if *configPath != "" {
		cfg, err := app.LoadConfig(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		app.Config = cfg
	}
	if *addr != "" {
		app.Config.Addr = *addr
	}

	netspec.Backends["keras"] = keras.Backend{
		Python: app.Config.Keras.Python,
		Script: app.Config.Keras.Script,
		Dir:    app.Config.Keras.Dir,
		Quiet:  app.Config.Keras.Quiet,
	}
	if _, err := netspec.GetBackend(app.Config.DefaultBackend); err != nil {
		log.Fatalf("bad default_backend: %v", err)
	}

	if err := app.InitDB(app.Config.DBPath, *initdb); err != nil {
		log.Fatal(err)
	}

	server, err := socketio.NewServer(nil)
	if err != nil {
		panic(err)
	}
	server.OnConnect("/", func(s socketio.Conn) error {
		return nil
	})
	for _, f := range app.SetupFuncs {
		f(server)
	}

	go server.Serve()
	defer server.Close()
	http.Handle("/socket.io/", server)
	http.Handle("/", app.Router)
	log.Printf("starting on %s with backends %v", app.Config.Addr, netspec.BackendNames())
	if err := http.ListenAndServe(app.Config.Addr, nil); err != nil {
		panic(err)
	}
}
