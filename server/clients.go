package server

import (
	"context"
	"net/http"

	migrate "github.com/clawplet/go-clawplet/db"
	"github.com/clawplet/go-clawplet/env"
	"github.com/clawplet/go-clawplet/service/logger"
	"github.com/clawplet/go-clawplet/service/persist/postgres"
	"github.com/clawplet/go-clawplet/service/rpc"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/everFinance/goar"
	shell "github.com/ipfs/go-ipfs-api"
)

// Clients are the long-lived connection handles shared by every request. They are
// read-only after construction and injected explicitly rather than held as globals.
type Clients struct {
	Repos         *postgres.Repositories
	EthClient     *ethclient.Client
	MintEthClient *ethclient.Client
	IPFSClient    *shell.Shell
	ArweaveClient *goar.Client
	HTTPClient    *http.Client

	closeFunc func()
}

func (c *Clients) Close() {
	c.closeFunc()
}

// ClientInit initializes all clients and runs pending database migrations
func ClientInit(ctx context.Context) *Clients {
	pq := postgres.MustCreateClient()
	if err := migrate.RunMigrations(pq, "./db/migrations/core"); err != nil {
		logger.For(ctx).Fatalf("error running migrations: %s", err)
	}

	ethClient := rpc.NewEthClient()

	// The mint contract may live behind a different RPC endpoint than the registry
	mintEthClient := ethClient
	if mintRPCURL := env.GetString("MINT_RPC_URL"); mintRPCURL != "" && mintRPCURL != env.GetString("RPC_URL") {
		mintEthClient = rpc.NewEthClientForURL(mintRPCURL)
	}

	return &Clients{
		Repos:         postgres.NewRepositories(pq),
		EthClient:     ethClient,
		MintEthClient: mintEthClient,
		IPFSClient:    rpc.NewIPFSShell(),
		ArweaveClient: rpc.NewArweaveClient(),
		HTTPClient:    &http.Client{Timeout: 0}, // generation-bound requests own their deadlines
		closeFunc: func() {
			pq.Close()
			ethClient.Close()
			mintEthClient.Close()
		},
	}
}
