// Package cli implements the voxnote CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voxnote/internal/config"
	"voxnote/internal/store"
)

var (
	configPath string
	debugFlag  bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "voxnote",
	Short: "Structured note intake from free-form speech",
	Long: "Voxnote turns free-form utterances into structured records: category\n" +
		"tables with a mirrored Inbox log, natural-language queries, and\n" +
		"natural-language deletion with confirmation.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: $VOXNOTE_CONFIG)")
	RootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Verbose logging")
}

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("VOXNOTE_CONFIG")
	}
	return config.Load(path)
}

func buildLogger() (*zap.Logger, error) {
	if debugFlag {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openGateway(cfg config.Config) (*store.SQLiteGateway, error) {
	return store.NewSQLiteGateway(cfg.DBPath)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
