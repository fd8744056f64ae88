//go:build js && wasm

// Command simcore-wasm exposes the simulation core to the browser via
// WebAssembly, for the dashboard front-end external collaborator (§1) to
// drive without a server round trip. After loading, it registers a global
// JavaScript function:
//
//	runEpisode(jsonConfig) -> jsonOutcome
//
// matching the teacher's cmd/wasm contract.
package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/driveresearch/simcore/internal/config"
)

func main() {
	js.Global().Set("runEpisode", js.FuncOf(runEpisode))
	select {} // keep the WASM module alive until the page is closed
}

func runEpisode(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "no config provided"}
	}

	var cfg config.Config
	if err := json.Unmarshal([]byte(args[0].String()), &cfg); err != nil {
		return map[string]any{"error": err.Error()}
	}

	ep, err := cfg.Build(nil)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}

	outcome := ep.Run(cfg.DurationSim, nil)
	result, err := json.Marshal(outcome)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return string(result)
}
