package server

import (
	"context"
	"net/http"

	"github.com/clawplet/go-clawplet/env"
	"github.com/clawplet/go-clawplet/middleware"
	"github.com/clawplet/go-clawplet/service/farcaster"
	"github.com/clawplet/go-clawplet/service/generate"
	"github.com/clawplet/go-clawplet/service/logger"
	"github.com/clawplet/go-clawplet/service/mint"
	"github.com/clawplet/go-clawplet/service/pinata"
	"github.com/clawplet/go-clawplet/service/warplet"
	"github.com/clawplet/go-clawplet/warpletapi"
	sentry "github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Init initializes the server and registers its routes on the default mux
func Init() {
	SetDefaults()
	ctx := context.Background()
	c := ClientInit(ctx)
	router := CoreInit(ctx, c)
	http.Handle("/", router)
}

// CoreInit initializes the server given a set of clients
func CoreInit(ctx context.Context, c *Clients) *gin.Engine {
	logger.For(nil).Info("initializing server...")

	if env.GetString("ENV") != "production" {
		gin.SetMode(gin.DebugMode)
		logger.SetLoggerOptions(func(l *logrus.Logger) {
			l.SetLevel(logrus.DebugLevel)
		})
	}

	InitSentry()

	router := gin.Default()
	router.Use(middleware.Sentry(true), middleware.HandleCORS(), middleware.ErrLogger())

	resolver := warplet.NewResolver(c.EthClient, c.IPFSClient, c.ArweaveClient, c.HTTPClient)
	generator := generate.NewGenerator(ctx)
	pinner := pinata.NewClient(c.HTTPClient)
	farcasterClient := farcaster.NewClient(c.HTTPClient)

	// Signing config is load-bearing; a missing key or contract address must kill the
	// server rather than default to signing for the wrong contract.
	signer, err := mint.NewSignerFromEnv()
	if err != nil {
		logger.For(ctx).Fatalf("error creating mint signer: %s", err)
	}
	statusChecker := mint.NewStatusChecker(c.MintEthClient, env.GetString("MINT_CONTRACT_ADDRESS"))

	tp := warpletapi.NewTransformProcessor(c.Repos.WarpletRepository, resolver, generator, pinner, c.HTTPClient)

	return warpletapi.HandlersInit(router, c.Repos, resolver, tp, signer, statusChecker, farcasterClient)
}

// SetDefaults sets the default values for the server's environment
func SetDefaults() {
	viper.SetDefault("ENV", "local")
	viper.SetDefault("VERSION", "")
	viper.SetDefault("PORT", "4000")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")

	viper.SetDefault("RPC_URL", "https://mainnet.base.org")
	viper.SetDefault("MINT_RPC_URL", "")
	viper.SetDefault("CHAIN_ID", 8453)
	viper.SetDefault("WARPLETS_CONTRACT_ADDRESS", "0x699727f9e01a822efdcf7333073f0461e5914b4e")
	viper.SetDefault("MINT_CONTRACT_ADDRESS", "")
	viper.SetDefault("MINT_VERIFIER_PRIVATE_KEY", "")

	viper.SetDefault("IPFS_URL", "https://ipfs.io")
	viper.SetDefault("IPFS_API_URL", "https://ipfs.infura.io:5001")
	viper.SetDefault("PINATA_JWT", "")
	viper.SetDefault("PINATA_GATEWAY", "")

	viper.SetDefault("NEYNAR_API_KEY", "")

	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL_ID", "gemini-2.5-flash-image")

	viper.SetDefault("POSTGRES_HOST", "0.0.0.0")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "postgres")

	viper.SetDefault("SENTRY_DSN", "")
	viper.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.2)

	viper.AutomaticEnv()
}

// InitSentry initializes sentry if we are not in a local environment
func InitSentry() {
	if env.GetString("ENV") == "local" {
		logger.For(nil).Info("skipping sentry init")
		return
	}

	logger.For(nil).Info("initializing sentry...")

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              env.GetString("SENTRY_DSN"),
		Environment:      env.GetString("ENV"),
		TracesSampleRate: env.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
		Release:          env.GetString("VERSION"),
		AttachStacktrace: true,
	})
	if err != nil {
		logger.For(nil).Fatalf("failed to start sentry: %s", err)
	}
}
