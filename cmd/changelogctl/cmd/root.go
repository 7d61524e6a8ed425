package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"changelog/internal/config"
	"changelog/internal/infrastructure/storage"
	"changelog/internal/infrastructure/storage/open"
	"changelog/internal/utils/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
	"golang.org/x/term"
)

var (
	cfgFile    string
	logLevel   string
	jsonOutput bool
	noColor    bool

	cfg     *config.Config
	log     *slog.Logger
	backend storage.Backend
)

var rootCmd = &cobra.Command{
	Use:   "changelogctl",
	Short: "changelogctl - администрирование журнала изменений",
	Long: `changelogctl работает напрямую с хранилищем из конфигурации, без сервера.

Для файлового хранилища остановите сервер перед изменениями:
оба процесса переписывают один и тот же файл.`,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	// PostRun не вызывается после ошибки RunE
	if err := teardown(cmd, nil); err != nil {
		return err
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	level, ok := logger.ParseLevel(logLevel)
	if !ok {
		return fmt.Errorf("неизвестный уровень логов %q", logLevel)
	}
	log = logger.SetupTo(cmd.ErrOrStderr(), cfg.Env, level)
	color.NoColor = noColor || !isTerminal(cmd)
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if backend == nil {
		return nil
	}
	err := backend.Close()
	backend = nil
	return err
}

// openBackend подключает хранилище при первом обращении.
// Без запасного варианта: админ должен видеть, что PostgreSQL недоступен.
func openBackend(ctx context.Context) (storage.Backend, error) {
	if backend != nil {
		return backend, nil
	}
	b, err := open.Backend(ctx, cfg, log, false)
	if err != nil {
		return nil, err
	}
	backend = b
	return b, nil
}

func inspector(ctx context.Context) (storage.Inspector, error) {
	b, err := openBackend(ctx)
	if err != nil {
		return nil, err
	}
	ins := open.Inspector(b)
	if ins == nil {
		return nil, errors.New("хранилище не поддерживает запросы")
	}
	return ins, nil
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл (по умолчанию CONFIG_PATH или ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "уровень логов: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "отключить цвета")

	rootCmd.AddCommand(listCmd, addCmd, deleteCmd, gcCmd, migrateCmd, statsCmd)
}
