package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/govm-net/sandbox/host"
	"github.com/govm-net/sandbox/types"
)

var serveAddr string

// invokeRequest is the JSON body of POST /invoke.
type invokeRequest struct {
	Contract string   `json:"contract"`
	Function string   `json:"function"`
	Args     []string `json:"args,omitempty"`
	Budget   uint64   `json:"budget,omitempty"`
}

type invokeResponse struct {
	Result     string `json:"result"`
	BudgetUsed uint64 `json:"budget_used"`
	Error      string `json:"error,omitempty"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an HTTP invocation endpoint with metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, closeBackend, err := openBackend()
		if err != nil {
			return err
		}
		defer closeBackend()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/invoke", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			var req invokeRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			// Every invocation gets a fresh host over the shared
			// backend, so a failed call leaks no state into the next.
			cfg := host.DefaultConfig()
			cfg.Backend = backend
			if req.Budget > 0 {
				cfg.BudgetLimit = req.Budget
			}
			h, err := host.New(cfg)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			vals, err := parseArgs(h, req.Args)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			var resp invokeResponse
			res, err := h.InvokeHostFunction(host.HostFunction{
				Type:       host.HostFnInvokeContract,
				ContractID: types.HashFromString(req.Contract),
				Func:       types.Symbol(req.Function),
				Args:       vals,
			})
			if err != nil {
				resp.Error = err.Error()
			} else if err := h.Storage().Commit(); err != nil {
				resp.Error = err.Error()
			} else {
				resp.Result = res.String()
			}
			resp.BudgetUsed = h.Budget().Used()

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		})

		srv := &http.Server{
			Addr:         serveAddr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		fmt.Printf("listening on %s\n", serveAddr)
		if err := srv.ListenAndServe(); err != nil {
			return xerrors.Errorf("server stopped: %v", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}
