package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/govm-net/sandbox/host"
	"github.com/govm-net/sandbox/types"
)

var (
	invokeContract string
	invokeFunction string
	invokeArgs     []string
	invokeBudget   uint64
	invokeDebug    bool
)

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Invoke a contract function",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, closeBackend, err := newHost()
		if err != nil {
			return err
		}
		defer closeBackend()

		if invokeDebug {
			h.SetDiagnosticLevel(host.DiagnosticDebug)
		}

		vals, err := parseArgs(h, invokeArgs)
		if err != nil {
			return err
		}

		res, err := h.InvokeHostFunction(host.HostFunction{
			Type:       host.HostFnInvokeContract,
			ContractID: types.HashFromString(invokeContract),
			Func:       types.Symbol(invokeFunction),
			Args:       vals,
		})
		if err != nil {
			return xerrors.Errorf("invoke failed: %v", err)
		}
		if err := h.Storage().Commit(); err != nil {
			return xerrors.Errorf("failed to commit ledger: %v", err)
		}

		fmt.Printf("result: %s\n", res)
		fmt.Printf("budget used: %d\n", h.Budget().Used())
		if invokeDebug {
			for _, ev := range h.Events() {
				fmt.Printf("event: type=%d topics=%s data=%s\n", ev.Type, ev.Topics, ev.Data)
			}
		}
		return nil
	},
}

// parseArgs converts "kind:value" argument strings into raw values.
// Supported kinds: u32, u64, str, sym, addr, bytes (hex).
func parseArgs(h *host.Host, raw []string) ([]types.Val, error) {
	out := make([]types.Val, 0, len(raw))
	for _, r := range raw {
		kind, value, found := strings.Cut(r, ":")
		if !found {
			return nil, xerrors.Errorf("malformed argument %q, want kind:value", r)
		}
		var v types.Val
		var err error
		switch kind {
		case "u32":
			n, perr := strconv.ParseUint(value, 10, 32)
			if perr != nil {
				return nil, xerrors.Errorf("bad u32 argument %q: %v", value, perr)
			}
			v = types.U32(uint32(n))
		case "u64":
			n, perr := strconv.ParseUint(value, 10, 64)
			if perr != nil {
				return nil, xerrors.Errorf("bad u64 argument %q: %v", value, perr)
			}
			v, err = h.U64Object(n)
		case "str":
			v, err = h.StringObject(value)
		case "sym":
			v, err = h.SymbolObject(types.Symbol(value))
		case "addr":
			v, err = h.AddressObject(types.AddressFromString(value))
		case "bytes":
			data, perr := hex.DecodeString(strings.TrimPrefix(value, "0x"))
			if perr != nil {
				return nil, xerrors.Errorf("bad bytes argument %q: %v", value, perr)
			}
			v, err = h.BytesObject(data)
		default:
			return nil, xerrors.Errorf("unknown argument kind %q", kind)
		}
		if err != nil {
			return nil, xerrors.Errorf("failed to build argument %q: %v", r, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// newHost builds a host over the backend selected by the global flags.
func newHost() (*host.Host, func() error, error) {
	backend, closer, err := openBackend()
	if err != nil {
		return nil, nil, err
	}
	cfg := host.DefaultConfig()
	cfg.Backend = backend
	if invokeBudget > 0 {
		cfg.BudgetLimit = invokeBudget
	}
	h, err := host.New(cfg)
	if err != nil {
		closer()
		return nil, nil, xerrors.Errorf("failed to create host: %v", err)
	}
	return h, closer, nil
}

func init() {
	invokeCmd.Flags().StringVar(&invokeContract, "contract", "", "contract id (hex)")
	invokeCmd.Flags().StringVar(&invokeFunction, "fn", "", "function name")
	invokeCmd.Flags().StringArrayVar(&invokeArgs, "arg", nil, "argument as kind:value")
	invokeCmd.Flags().Uint64Var(&invokeBudget, "budget", 0, "execution budget override")
	invokeCmd.Flags().BoolVar(&invokeDebug, "debug", false, "record diagnostic events")
	invokeCmd.MarkFlagRequired("contract")
	invokeCmd.MarkFlagRequired("fn")
}
