// seed_run.go — standalone script to submit a docking post-processing run
// from two score CSVs via the Frontier API.
//
// Usage:
//
//	go run scripts/seed_run.go -synth results_synthesizability.csv \
//	    -affinity results.csv -pdbid 4bel -experiment test14 -epoch 1
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
)

type submitRun struct {
	PDBID            string `json:"pdbid"`
	Experiment       string `json:"experiment"`
	Epoch            int    `json:"epoch,omitempty"`
	NumGen           int    `json:"num_gen,omitempty"`
	KnownBindingSite string `json:"known_binding_site,omitempty"`
	SynthCSV         string `json:"synth_csv"`
	AffinityCSV      string `json:"affinity_csv"`
}

func main() {
	synthPath := flag.String("synth", "results_synthesizability.csv", "path to synthesizability score CSV")
	affinityPath := flag.String("affinity", "results.csv", "path to docking affinity CSV")
	apiURL := flag.String("api", "http://localhost:8700", "Frontier API base URL")
	pdbid := flag.String("pdbid", "", "target protein PDB id")
	experiment := flag.String("experiment", "", "experiment name")
	epoch := flag.Int("epoch", 0, "generative epoch the ligands came from")
	numGen := flag.Int("num-gen", 0, "number of generated molecules")
	bindingSite := flag.String("binding-site", "", "known binding site label")
	dryRun := flag.Bool("dry-run", false, "print the request without posting")
	flag.Parse()

	if *pdbid == "" || *experiment == "" {
		log.Fatal("-pdbid and -experiment are required")
	}

	synth, err := os.ReadFile(*synthPath)
	if err != nil {
		log.Fatalf("read synth csv: %v", err)
	}
	affinity, err := os.ReadFile(*affinityPath)
	if err != nil {
		log.Fatalf("read affinity csv: %v", err)
	}

	run := submitRun{
		PDBID:            *pdbid,
		Experiment:       *experiment,
		Epoch:            *epoch,
		NumGen:           *numGen,
		KnownBindingSite: *bindingSite,
		SynthCSV:         string(synth),
		AffinityCSV:      string(affinity),
	}

	body, err := json.Marshal(run)
	if err != nil {
		log.Fatalf("marshal request: %v", err)
	}

	if *dryRun {
		fmt.Printf("POST %s/api/v1/runs\npdbid=%s experiment=%s epoch=%d synth=%dB affinity=%dB\n",
			*apiURL, run.PDBID, run.Experiment, run.Epoch, len(run.SynthCSV), len(run.AffinityCSV))
		return
	}

	resp, err := http.Post(*apiURL+"/api/v1/runs", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("post run: %v", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("submit failed: %d %s", resp.StatusCode, string(respBody))
	}

	var created struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		log.Fatalf("decode response: %v", err)
	}
	log.Printf("queued run %s", created.RunID)
}
