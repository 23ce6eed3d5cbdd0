package cmd

import (
	"fmt"
	"os"

	"Soundbay/config"
	"Soundbay/logger"
	"Soundbay/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "soundbay",
	Short: "Soundbay is an audio track marketplace backend.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(loadConfig())
	},
	SilenceUsage: true,
}

// loadConfig 读取配置并初始化日志
func loadConfig() *config.Config {
	cfg := config.Load()
	logger.InitLogger(logger.Config{
		Level:       logger.LogLevel(cfg.LogLevel),
		OutputPath:  cfg.LogFile,
		MaxSize:     cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
		MaxAge:      cfg.LogMaxAgeDays,
		Compress:    cfg.LogCompress,
		Development: cfg.IsDevelopment(),
	})
	return cfg
}

// Execute executes the root command.
func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logger.Sync()
		os.Exit(1)
	}
}
