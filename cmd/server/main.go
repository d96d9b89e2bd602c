package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Hana-Lee/translate-chat/internal/api"
	"github.com/Hana-Lee/translate-chat/internal/config"
	"github.com/Hana-Lee/translate-chat/internal/database"
	"github.com/Hana-Lee/translate-chat/internal/push"
	"github.com/Hana-Lee/translate-chat/internal/server"
	"github.com/Hana-Lee/translate-chat/internal/stats"
	"github.com/Hana-Lee/translate-chat/internal/translate"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr            string
	driver          string
	dsn             string
	allowedOrigins  stringSliceFlag
	msKey           string
	msEndpoint      string
	naverClientId   string
	naverSecret     string
	naverEndpoint   string
	providerTimeout time.Duration
	pushURL         string
	pushToken       string
	pushTitle       string
	uploadDir       string
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:3000", "server address")
	flag.StringVar(&driver, "driver", "sqlite3", "database driver (sqlite3 or postgres)")
	flag.StringVar(&dsn, "dsn", "translate-chat.db", "database connection string")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.StringVar(&msKey, "ms-key", os.Getenv("MS_TRANSLATOR_KEY"), "Microsoft Translator subscription key")
	flag.StringVar(&msEndpoint, "ms-endpoint", "", "Microsoft Translator endpoint override")
	flag.StringVar(&naverClientId, "naver-client-id", os.Getenv("NAVER_CLIENT_ID"), "Naver API client id")
	flag.StringVar(&naverSecret, "naver-client-secret", os.Getenv("NAVER_CLIENT_SECRET"), "Naver API client secret")
	flag.StringVar(&naverEndpoint, "naver-endpoint", "", "Naver translation endpoint override")
	flag.DurationVar(&providerTimeout, "provider-timeout", 15*time.Second, "per-hop translation provider timeout")
	flag.StringVar(&pushURL, "push-url", os.Getenv("PUSH_GATEWAY_URL"), "push gateway URL")
	flag.StringVar(&pushToken, "push-token", os.Getenv("PUSH_GATEWAY_TOKEN"), "push gateway bearer token")
	flag.StringVar(&pushTitle, "push-title", "translate-chat", "push notification title")
	flag.StringVar(&uploadDir, "upload-dir", "uploads", "directory for uploaded images")
	flag.Parse()

	logger := log.New(os.Stderr, "[translate-chat] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, driver, dsn, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}
	cfg.MSClientSecret = msKey
	cfg.MSEndpoint = msEndpoint
	cfg.NaverClientId = naverClientId
	cfg.NaverClientSecret = naverSecret
	cfg.NaverEndpoint = naverEndpoint
	cfg.ProviderTimeout = providerTimeout
	cfg.PushGatewayURL = pushURL
	cfg.PushAuthToken = pushToken
	cfg.PushTitle = pushTitle
	cfg.UploadDir = uploadDir

	repo, err := database.NewSQLChatRepository(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	ms := translate.NewMSProvider(cfg.MSEndpoint, cfg.MSClientSecret)
	naver := translate.NewNaverProvider(cfg.NaverEndpoint, cfg.NaverClientId, cfg.NaverClientSecret)
	relay := translate.NewRelay(ms, naver, ms, cfg.ProviderTimeout, logger)

	gateway := push.NewHTTPGateway(cfg.PushGatewayURL, cfg.PushAuthToken)
	notifier := push.NewDispatcher(repo, gateway, cfg.PushTitle, logger, statsUpdater)

	chatServer, err := server.NewChatServer(logger, repo, relay, notifier, statsUpdater, cfg)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	app := api.NewTranslateChatApp(mux, logger, chatServer, repo, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := app.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	chatServer.Shutdown()

	logger.Println("shutdown complete")
}
