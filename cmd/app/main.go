package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fingate/config"
	"fingate/internal/command"
	"fingate/internal/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "fingate/cmd/docs"
)

var (
	Version  string
	envPath  string
	yamlPath string
	conf     *config.Configuration
	logger   *zap.Logger
)

// @title        fingate API
// @version      1.0
// @description  API gateway：API key 驗證、限流、用量紀錄與 webhook 投遞
// @host         localhost:3000
// @basePath     /
// @securityDefinitions.apikey ApiKeyAuth
// @in   header
// @name Authorization
// @description 請在欄位輸入 "Bearer {api key}"

// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
// @description 請在欄位輸入 "Bearer {owner token}"
func main() {
	rootCmd := &cobra.Command{
		Use:          "app",
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			defer logger.Sync()
			app, cleanup, err := wireApp(conf, logger)
			if err != nil {
				panic(err)
			}
			defer cleanup()

			logger.Info("start app ...")
			if err := app.Run(); err != nil {
				panic(err)
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			logger.Info("shutdown app ...")
			ctx, cancel := context.WithTimeout(context.Background(), conf.App.ShutdownTimeout())
			defer cancel()

			if err := app.Stop(ctx); err != nil {
				logger.Error("shutdown app failed", zap.Error(err))
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&envPath, "env", "e", "", "Environment file, e.g. --env .env")
	rootCmd.PersistentFlags().StringVarP(&yamlPath, "config", "c", "", "YAML config file, e.g. --config config.yaml")

	cobra.OnInitialize(func() {
		if envPath != "" && yamlPath != "" {
			fmt.Println("同時指定 --env 與 --config，將以 --env 優先")
		}
		initConfig()
		initLogger()
	})

	command.Register(rootCmd, func() (*command.Command, func(), error) {
		return wireCommand(conf, logger)
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLogger() {
	if conf == nil {
		panic("config is nil! Check config/initConfig logic.")
	}
	if Version != "" && conf.App.Version == "" {
		conf.App.Version = Version
	}
	l, err := log.NewLogger(conf)
	if err != nil {
		panic(fmt.Errorf("init logger failed: %w", err))
	}
	logger = l
}

func initConfig() {
	c, err := loadConfig(envPath, yamlPath)
	if err != nil {
		panic(err)
	}
	if err := c.Validate(); err != nil {
		panic(fmt.Errorf("invalid config: %w", err))
	}
	conf = c
}
