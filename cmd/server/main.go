package main

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/europe-conquest/internal/config"
	"github.com/palemoky/europe-conquest/internal/logger"
	"github.com/palemoky/europe-conquest/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	envPath := flag.String("env", ".env", "环境变量文件路径")
	flag.Parse()

	// .env 可选，存在时先载入，已有的环境变量优先
	envErr := godotenv.Load(*envPath)

	// 加载配置
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("加载配置文件失败")
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatal().Err(err).Msg("初始化日志失败")
	}
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		log.Warn().Err(envErr).Str("path", *envPath).Msg("读取 .env 失败")
	}

	// 创建服务器
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("创建服务器失败")
	}

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		<-quit
		log.Info().Msg("正在关闭服务器...")
		srv.GracefulShutdown(cfg.Game.ShutdownTimeoutDuration())
		close(done)
	}()

	// 启动服务器
	log.Info().Msg("🌍 欧洲征服服务器启动中...")
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("服务器启动失败")
	}
	<-done
}
