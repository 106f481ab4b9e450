package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/govm-net/sandbox/storage"
	"github.com/govm-net/sandbox/storage/db"
	"github.com/govm-net/sandbox/storage/kv"
	"github.com/govm-net/sandbox/storage/memdb"
)

var (
	flagBackend string
	flagDBPath  string
)

var rootCmd = &cobra.Command{
	Use:   "sandbox-cli",
	Short: "Sandboxed contract host command line tool",
	Long: `Command line tool for uploading, creating and invoking smart
contracts against a local sandboxed execution host.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "sqlite",
		"ledger backend: sqlite, bolt or memory")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "./ledger.db",
		"path of the ledger database")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(invokeCmd)
}

// openBackend opens the ledger backend selected by the global flags.
func openBackend() (storage.Backend, func() error, error) {
	switch flagBackend {
	case "sqlite":
		b, err := db.Open(flagDBPath)
		if err != nil {
			return nil, nil, xerrors.Errorf("failed to open sqlite backend: %v", err)
		}
		return b, b.Close, nil
	case "bolt":
		b, err := kv.Open(flagDBPath)
		if err != nil {
			return nil, nil, xerrors.Errorf("failed to open bolt backend: %v", err)
		}
		return b, b.Close, nil
	case "memory":
		return memdb.New(), func() error { return nil }, nil
	default:
		return nil, nil, xerrors.Errorf("unknown backend %q", flagBackend)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
