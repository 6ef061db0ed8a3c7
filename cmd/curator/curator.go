package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/gardencam/gardencam/curate"
	"github.com/gardencam/gardencam/curate/rundb"
	"github.com/gardencam/gardencam/pkg/nnremote"
)

func main() {
	parser := argparse.NewParser("curator", "Curate the training corpus: ingest, triage, assemble")
	runIngest := parser.Flag("", "ingest", &argparse.Options{Help: "Run the ingest stage (dedup incoming images and video frames into the unlabeled pool)"})
	runSelect := parser.Flag("", "select", &argparse.Options{Help: "Run the selection stage (active learning triage of the unlabeled pool)"})
	runPrep := parser.Flag("", "prep", &argparse.Options{Help: "Run the prep stage (assemble train/val dataset)"})
	runAll := parser.Flag("", "all", &argparse.Options{Help: "Run all stages (ingest, select, prep)"})
	root := parser.String("r", "root", &argparse.Options{Help: "Pipeline root directory", Required: false, Default: "."})
	modelUrl := parser.String("m", "model", &argparse.Options{Help: "URL of the detection inference service", Required: false, Default: "http://127.0.0.1:8090"})
	imgsz := parser.Int("", "imgsz", &argparse.Options{Help: "Image resize target for inference", Required: false, Default: 640})
	confLow := parser.Float("", "conf-low", &argparse.Options{Help: "<= this = low confidence", Required: false, Default: 0.15})
	confHigh := parser.Float("", "conf-high", &argparse.Options{Help: "(low, high] = mid confidence; above = confident", Required: false, Default: 0.45})
	valSplit := parser.Float("", "val-split", &argparse.Options{Help: "Validation fraction of the merged labeled pool", Required: false, Default: 0.15})
	seed := parser.Int("", "seed", &argparse.Options{Help: "Shuffle seed for the train/val split", Required: false, Default: 0})
	frameInterval := parser.Float("", "frame-interval", &argparse.Options{Help: "Seconds between sampled video frames", Required: false, Default: 1.0})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if !*runIngest && !*runSelect && !*runPrep && !*runAll {
		fmt.Print(parser.Usage("Nothing to do: pass --ingest, --select, --prep or --all"))
		os.Exit(1)
	}
	if *confLow >= *confHigh {
		logger.Errorf("conf-low (%v) must be below conf-high (%v)", *confLow, *confHigh)
		os.Exit(1)
	}

	paths := curate.NewPaths(*root)
	if err := paths.EnsureDirs(); err != nil {
		logger.Errorf("Failed to create pipeline directories under %v: %v", *root, err)
		os.Exit(1)
	}

	if *runAll || *runIngest {
		ingester := curate.NewIngester(logger, paths, *frameInterval)
		if _, err := ingester.Run(); err != nil {
			logger.Errorf("Ingest failed: %v", err)
			os.Exit(1)
		}
	}

	if *runAll || *runSelect {
		// The model service must be reachable before we touch any files
		model, err := nnremote.NewClient(logger, *modelUrl, *imgsz)
		if err != nil {
			logger.Errorf("Failed to connect to detection model: %v", err)
			os.Exit(1)
		}
		defer model.Close()

		triage := curate.NewTriage(logger, paths, model, float32(*confLow), float32(*confHigh))
		stats, decisions, err := triage.Run()
		if err != nil {
			logger.Errorf("Triage failed: %v", err)
			os.Exit(1)
		}
		if err := curate.NewRunLog(paths.RunLogFile()).Append(decisions); err != nil {
			logger.Errorf("Failed to append run log: %v", err)
			os.Exit(1)
		}
		recordRunHistory(logger, paths, *confLow, *confHigh, stats, decisions)
	}

	if *runAll || *runPrep {
		assembler := curate.NewAssembler(logger, paths, *valSplit, int64(*seed))
		if _, _, err := assembler.Run(); err != nil {
			logger.Errorf("Dataset assembly failed: %v", err)
			os.Exit(1)
		}
	}
}

// recordRunHistory mirrors the triage outcome into the run history DB.
// Best effort: history is a tuning aid, so a DB problem is logged and the
// pipeline carries on.
func recordRunHistory(logger logs.Log, paths curate.Paths, confLow, confHigh float64, stats curate.TriageStats, decisions []curate.RouteDecision) {
	db, err := rundb.Open(logger, paths.RunDBFile())
	if err != nil {
		logger.Warnf("Run history unavailable: %v", err)
		return
	}
	runID, err := db.BeginRun("select", confLow, confHigh)
	if err != nil {
		logger.Warnf("Failed to record run: %v", err)
		return
	}
	routes := make([]rundb.RouteRecord, 0, len(decisions))
	for _, d := range decisions {
		routes = append(routes, rundb.RouteRecord{
			File:   d.File,
			Route:  string(d.Route),
			Reason: d.Reason,
		})
	}
	if err := db.AddRoutes(runID, routes); err != nil {
		logger.Warnf("Failed to record routes: %v", err)
	}
	if err := db.FinishRun(runID, stats.Scanned, stats.ToLabel, stats.Autolabeled, stats.Errors); err != nil {
		logger.Warnf("Failed to finalize run record: %v", err)
	}
}
