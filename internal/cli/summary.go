package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"voxnote/internal/llm"
	"voxnote/internal/registry"
	"voxnote/internal/summary"
)

func init() {
	cmd := &cobra.Command{
		Use:       "summary [daily|weekly]",
		Short:     "Build a digest over the Inbox log and print it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"daily", "weekly"},
		Run:       runSummary,
	}
	RootCmd.AddCommand(cmd)
}

func runSummary(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	log, err := buildLogger()
	if err != nil {
		exitErr("init logger", err)
	}
	defer log.Sync()

	gw, err := openGateway(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer gw.Close()

	ctx := cmd.Context()
	reg := registry.New(gw, cfg.SchemaCacheTTL(), log)
	adapter, err := llm.NewGeminiAdapter(ctx, llm.GeminiConfig{
		APIKey:       cfg.GeminiAPIKey,
		RouterModel:  cfg.RouterModel,
		ExtractModel: cfg.ExtractModel,
	}, reg, log)
	if err != nil {
		exitErr("init model adapter", err)
	}

	b := summary.NewBuilder(gw, adapter, log)
	now := time.Now()

	var text string
	var count int
	switch args[0] {
	case "weekly":
		text, count, err = b.Weekly(ctx, now)
	default:
		text, count, err = b.Daily(ctx, now)
	}
	if err != nil {
		exitErr("build summary", err)
	}

	fmt.Println(text)
	if count > 0 {
		fmt.Printf("\n(записей: %d)\n", count)
	}
}
