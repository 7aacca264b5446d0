package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"voxnote/internal/registry"
)

func init() {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables with their headers",
		Run:   runTables,
	}
	RootCmd.AddCommand(cmd)
}

func runTables(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	gw, err := openGateway(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer gw.Close()

	ctx := cmd.Context()
	tables, err := gw.ListTables(ctx)
	if err != nil {
		exitErr("list tables", err)
	}
	if len(tables) == 0 {
		fmt.Println("no tables")
		return
	}

	for _, table := range tables {
		header, err := gw.ReadHeader(ctx, table)
		if err != nil {
			exitErr("read header", err)
		}
		kind := ""
		if registry.IsReserved(table) {
			kind = " (service)"
		}
		fmt.Printf("%s%s: %s\n", table, kind, strings.Join(header, " | "))
	}
}
