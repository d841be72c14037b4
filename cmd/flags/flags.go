package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/diplomachain/api"
	"github.com/ruteri/diplomachain/common"
	"github.com/ruteri/diplomachain/network"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
		Output:  cCtx.App.ErrWriter,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
		MaxDocumentSize:          cCtx.Int64(MaxDocumentSizeFlag.Name),
	}
}

var RpcAddrFlag = &cli.StringFlag{
	Name:  "rpc-addr",
	Usage: "ledger RPC endpoint, overrides the endpoint of the selected network",
}

var WalletRpcFlag = &cli.StringFlag{
	Name:    "wallet-rpc",
	Usage:   "wallet JSON-RPC endpoint used for signing (eth_requestAccounts, wallet_* methods)",
	EnvVars: []string{"DIPLOMACHAIN_WALLET_RPC"},
}

var PrivateKeyFlag = &cli.StringFlag{
	Name:    "private-key",
	Usage:   "hex private key to sign with instead of a wallet",
	EnvVars: []string{"DIPLOMACHAIN_PRIVATE_KEY"},
}

var NetworkFlag = &cli.StringFlag{
	Name:  "network",
	Value: network.DefaultNetworkKey,
	Usage: "network key; when not set the signing agent's current chain decides",
}

var NetworksFileFlag = &cli.StringFlag{
	Name:  "networks-file",
	Usage: "JSON file with additional or replacement network deployments",
}

var OverridesFlag = &cli.StringSliceFlag{
	Name:    "overrides",
	Usage:   "storage URIs holding registry address overrides (file://, s3://, vault://, ipfs://, dns://)",
	EnvVars: []string{"DIPLOMACHAIN_OVERRIDES"},
}

var TimeoutFlag = &cli.DurationFlag{
	Name:  "timeout",
	Value: 10 * time.Second,
	Usage: "timeout for every ledger, wallet and storage call",
}

var ConfirmTimeoutFlag = &cli.DurationFlag{
	Name:  "confirm-timeout",
	Value: 2 * time.Minute,
	Usage: "how long --wait waits for confirmation",
}

var WaitFlag = &cli.BoolFlag{
	Name:  "wait",
	Usage: "wait for the transaction to be confirmed or rejected",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}
var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}
var MaxDocumentSizeFlag = &cli.Int64Flag{
	Name:  "max-document-size",
	Value: api.DefaultMaxDocumentSize,
	Usage: "largest document accepted for verification, in bytes",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

// LedgerFlags select the network, the ledger endpoint and the signer.
var LedgerFlags = []cli.Flag{
	RpcAddrFlag,
	WalletRpcFlag,
	PrivateKeyFlag,
	NetworkFlag,
	NetworksFileFlag,
	OverridesFlag,
	TimeoutFlag,
}

var ServerFlags = []cli.Flag{
	ListenAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
	MaxDocumentSizeFlag,
}
