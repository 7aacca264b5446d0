package cli

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voxnote/internal/deletion"
	"voxnote/internal/extract"
	"voxnote/internal/intent"
	"voxnote/internal/llm"
	"voxnote/internal/pipeline"
	"voxnote/internal/query"
	"voxnote/internal/registry"
	"voxnote/internal/session"
	"voxnote/internal/settings"
	"voxnote/internal/summary"
	"voxnote/internal/thinking"
)

var serveUserID int64

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot on a console transport",
		Long: "Reads one utterance per line from stdin and prints responses to\n" +
			"stdout. The digest scheduler runs in the background.",
		Run: runServe,
	}
	cmd.Flags().Int64Var(&serveUserID, "user", 1, "User id for the console session")
	RootCmd.AddCommand(cmd)
}

// consoleSender prints responses to stdout.
type consoleSender struct{}

func (consoleSender) Send(chatID int64, text string) error {
	_, err := fmt.Printf("%s\n\n", text)
	return err
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	log, err := buildLogger()
	if err != nil {
		exitErr("init logger", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := openGateway(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer gw.Close()

	reg := registry.New(gw, cfg.SchemaCacheTTL(), log)
	adapter, err := llm.NewGeminiAdapter(ctx, llm.GeminiConfig{
		APIKey:       cfg.GeminiAPIKey,
		RouterModel:  cfg.RouterModel,
		ExtractModel: cfg.ExtractModel,
	}, reg, log)
	if err != nil {
		exitErr("init model adapter", err)
	}

	router := intent.NewRouter(adapter, reg, cfg.CatchAllCategory, log)
	router.ThinkingChars = cfg.ThinkingChars
	router.ThinkingSeconds = cfg.ThinkingSeconds

	sender := consoleSender{}
	p := pipeline.New(pipeline.Deps{
		Gateway:          gw,
		Registry:         reg,
		Router:           router,
		Extractor:        extract.New(gw, reg, adapter, cfg.CatchAllCategory, log),
		Deleter:          deletion.New(gw, log),
		Responder:        query.New(gw, adapter, log),
		Segmenter:        thinking.New(gw, reg, adapter, cfg.CatchAllCategory, log),
		Sessions:         session.NewManager(cfg.PendingTTL()),
		Sender:           sender,
		Log:              log,
		AllowedUserIDs:   cfg.AllowedUserIDs,
		AllowedUsernames: cfg.AllowedUsernames,
	})

	st := settings.NewStore(cfg.SettingsPath)
	sched := summary.NewScheduler(st, summary.NewBuilder(gw, adapter, log), sender, log)
	go sched.Run(ctx)

	log.Info("voxnote started", zap.String("db", cfg.DBPath))
	fmt.Println("Готов. Пишите сообщение, Ctrl+D для выхода.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		msg := pipeline.Message{UserID: serveUserID, ChatID: serveUserID, Text: text}
		if err := p.Handle(ctx, msg); err != nil {
			log.Error("send failed", zap.Error(err))
		}
		if ctx.Err() != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error("stdin read failed", zap.Error(err))
	}
	log.Info("voxnote stopped")
}
