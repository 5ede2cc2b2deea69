package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	http_adapter "github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/in/http"
	memory_adapter "github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/out/mysql"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/usecase"
	"github.com/JoeShih716/go-wallet-ledger/pkg/logger"
	"github.com/JoeShih716/go-wallet-ledger/pkg/mysql"
	"github.com/JoeShih716/go-wallet-ledger/pkg/wal"
)

// Store Driver 選項
const (
	StoreDriverMySQL  = "mysql"
	StoreDriverMemory = "memory"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Store struct {
		// Driver: "mysql" 或 "memory"
		Driver string `yaml:"driver"`
		// WALPath: memory driver 的 WAL 檔案路徑
		WALPath string `yaml:"wal_path"`
	} `yaml:"store"`
	MySQL mysql.Config `yaml:"mysql"`
	Log   struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func main() {
	// 1. 載入設定
	cfg := loadConfig()

	// 2. 初始化 Logger
	zlog, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	// 3. 初始化 Ledger Store
	var store usecase.LedgerStore
	switch cfg.Store.Driver {
	case StoreDriverMySQL:
		dbClient, err := mysql.NewClient(cfg.MySQL, zlog)
		if err != nil {
			zlog.Fatalw("failed to connect to mysql", "err", err)
		}
		defer dbClient.Close()
		zlog.Infow("connected to mysql", "host", cfg.MySQL.Host, "db", cfg.MySQL.DBName)

		store = mysql_adapter.NewStore(dbClient)
	case StoreDriverMemory:
		// 初始化 WAL，重啟時重放恢復帳本
		walFile, err := wal.Open(cfg.Store.WALPath)
		if err != nil {
			zlog.Fatalw("failed to open wal", "path", cfg.Store.WALPath, "err", err)
		}
		defer walFile.Close()

		memStore, err := memory_adapter.NewStore(walFile)
		if err != nil {
			zlog.Fatalw("failed to init memory store", "err", err)
		}
		zlog.Infow("memory store recovered from wal", "path", cfg.Store.WALPath)

		store = memStore
	default:
		zlog.Fatalw("invalid store driver", "driver", cfg.Store.Driver)
	}

	// 4. 初始化 Transaction Engine
	engine := usecase.NewEngine(store, zlog)

	// 5. 初始化 HTTP Adapter (Driving Adapter)
	handler := http_adapter.NewHandler(engine, zlog)
	router := http_adapter.NewRouter(handler)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	// 6. 啟動 HTTP Server
	go func() {
		zlog.Infow("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatalw("failed to serve", "err", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Errorw("shutdown failed", "err", err)
	}
	zlog.Info("server exited")
}

func loadConfig() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}

	cfgData, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	// 補全預設配置 (如果 yaml 沒寫)
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreDriverMemory
	}
	if cfg.Store.WALPath == "" {
		cfg.Store.WALPath = "wallet-wal.log"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return cfg
}
