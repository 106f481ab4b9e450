package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/govm-net/sandbox/host"
	"github.com/govm-net/sandbox/storage"
	"github.com/govm-net/sandbox/types"
)

var (
	uploadFile string

	createDeployer string
	createSalt     string
	createWasmHash string
	createToken    bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload contract code to the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := os.ReadFile(uploadFile)
		if err != nil {
			return xerrors.Errorf("failed to read code file: %v", err)
		}

		h, closeBackend, err := newHost()
		if err != nil {
			return err
		}
		defer closeBackend()

		res, err := h.InvokeHostFunction(host.HostFunction{
			Type: host.HostFnUploadWasm,
			Code: code,
		})
		if err != nil {
			return xerrors.Errorf("upload failed: %v", err)
		}
		hashBytes, err := h.ObjectBytes(res)
		if err != nil {
			return xerrors.Errorf("failed to read upload result: %v", err)
		}
		if err := h.Storage().Commit(); err != nil {
			return xerrors.Errorf("failed to commit ledger: %v", err)
		}

		fmt.Printf("uploaded code hash: %x\n", hashBytes)
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a contract instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		exec := storage.Executable{Kind: storage.ExecToken}
		if !createToken {
			if createWasmHash == "" {
				return xerrors.New("either --wasm-hash or --token is required")
			}
			exec = storage.Executable{
				Kind:     storage.ExecWasm,
				WasmHash: types.HashFromString(createWasmHash),
			}
		}
		h, closeBackend, err := newHost()
		if err != nil {
			return err
		}
		defer closeBackend()

		res, err := h.InvokeHostFunction(host.HostFunction{
			Type:       host.HostFnCreateContract,
			Deployer:   types.AddressFromString(createDeployer),
			Salt:       types.HashFromString(createSalt),
			Executable: exec,
		})
		if err != nil {
			return xerrors.Errorf("create failed: %v", err)
		}
		idBytes, err := h.ObjectBytes(res)
		if err != nil {
			return xerrors.Errorf("failed to read create result: %v", err)
		}
		if err := h.Storage().Commit(); err != nil {
			return xerrors.Errorf("failed to commit ledger: %v", err)
		}

		fmt.Printf("created contract: %x\n", idBytes)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadFile, "code", "", "path of the wasm code file")
	uploadCmd.MarkFlagRequired("code")

	createCmd.Flags().StringVar(&createDeployer, "deployer", "", "deployer address (hex)")
	createCmd.Flags().StringVar(&createSalt, "salt", "", "deployment salt (hex)")
	createCmd.Flags().StringVar(&createWasmHash, "wasm-hash", "", "hash of previously uploaded code")
	createCmd.Flags().BoolVar(&createToken, "token", false, "create a built-in token contract")
	createCmd.MarkFlagRequired("deployer")
}
