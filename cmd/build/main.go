// Command build prints the network spec derived from a model configuration.
// With -url it instead registers the model with a running server, and with
// -list it prints the models already stored there.
package main

import (
	"github.com/skyhookml/netbuilder/app"
	"github.com/skyhookml/netbuilder/netspec"

	"flag"
	"fmt"
	"log"
	"os"
)

func main() {
	arch := flag.String("arch", "MLP", "architecture (MLP or LSTM)")
	objective := flag.String("objective", "continuous", "objective (continuous, categorical or binary)")
	hiddenUnits := flag.Int("hidden", 32, "hidden units")
	numInputs := flag.Int("inputs", 0, "input width")
	numOutputs := flag.Int("outputs", 0, "output units for continuous and categorical objectives")
	timesteps := flag.Int("timesteps", 0, "timesteps for LSTM")
	format := flag.String("format", "text", "output format (text or json)")
	name := flag.String("name", "", "model name, with -url")
	url := flag.String("url", "", "server URL; if set the model is created there")
	list := flag.Bool("list", false, "list the models stored on the server at -url and exit")
	flag.Parse()

	if *list {
		if *url == "" {
			log.Fatal("-list needs -url")
		}
		var models []app.DBModel
		if err := netspec.JsonGet(*url, "/models", &models); err != nil {
			log.Fatalf("error listing models: %v", err)
		}
		for _, m := range models {
			fmt.Printf("%d\t%s\t%s/%s hidden=%d layers=%d\n", m.ID, m.Name, m.Config.Architecture, m.Config.Objective, m.Config.HiddenUnits, len(m.Spec.Layers))
		}
		return
	}

	request := app.CreateModelRequest{
		Name:         *name,
		Architecture: *arch,
		Objective:    *objective,
		HiddenUnits:  *hiddenUnits,
		NumInputs:    *numInputs,
		NumOutputs:   *numOutputs,
		Timesteps:    *timesteps,
	}
	cfg, err := request.Configuration()
	if err != nil {
		log.Fatal(err)
	}

	var spec *netspec.CompiledModelSpec
	if *url != "" {
		var model app.DBModel
		if err := netspec.JsonPost(*url, "/models", request, &model); err != nil {
			log.Fatalf("error creating model: %v", err)
		}
		log.Printf("created model %d", model.ID)
		spec = model.Spec
	} else {
		spec, err = netspec.Build(cfg)
		if err != nil {
			log.Fatal(err)
		}
	}

	switch *format {
	case "json":
		os.Stdout.Write(netspec.JsonMarshal(spec))
		fmt.Println()
	case "text":
		fmt.Print(spec.Summary())
	default:
		log.Fatalf("unknown format %q", *format)
	}
}
