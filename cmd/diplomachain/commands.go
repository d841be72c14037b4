package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/diplomachain/cmd/flags"
	"github.com/ruteri/diplomachain/fingerprint"
	"github.com/ruteri/diplomachain/interfaces"
	"github.com/ruteri/diplomachain/issuance"
	"github.com/ruteri/diplomachain/registry"
	"github.com/ruteri/diplomachain/storage"
	"github.com/ruteri/diplomachain/verification"
	"github.com/urfave/cli/v2"
)

type envAction func(cCtx *cli.Context, env *flags.Env) error

// withEnv sets up logging and the ledger environment around action.
func withEnv(action envAction) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		logger := flags.SetupLogger(cCtx)
		env, err := flags.NewEnv(cCtx, logger, nil)
		if err != nil {
			return err
		}
		defer env.Close()
		return action(cCtx, env)
	}
}

func fingerprintAction(cCtx *cli.Context) error {
	r, closeFn, err := openDocument(cCtx, cCtx.Args().First())
	if err != nil {
		return err
	}
	defer closeFn()

	fp, err := fingerprint.FingerprintReader(r)
	if err != nil {
		return fmt.Errorf("could not read document: %w", err)
	}
	fmt.Fprintln(cCtx.App.Writer, fp.String())
	return nil
}

func verifyAction(cCtx *cli.Context, env *flags.Env) error {
	client, err := env.Client(cCtx.Context)
	if err != nil {
		return err
	}

	engine, err := verification.NewEngine(client, verification.WithLogger(env.Log))
	if err != nil {
		return err
	}

	issuer := cCtx.String(flagIssuer.Name)
	var verdict interfaces.Verdict
	if cCtx.IsSet(flagFingerprint.Name) {
		fp, err := interfaces.ParseFingerprint(cCtx.String(flagFingerprint.Name))
		if err != nil {
			return err
		}
		verdict, err = engine.VerifyFingerprint(cCtx.Context, fp, issuer)
		if err != nil {
			return err
		}
	} else {
		document, err := readDocument(cCtx, cCtx.Args().First())
		if err != nil {
			return err
		}
		verdict, err = engine.Verify(cCtx.Context, document, issuer)
		if err != nil {
			return err
		}
	}

	if err := printJSON(cCtx, verdict); err != nil {
		return err
	}
	if !verdict.Valid {
		return cli.Exit(verdict.Reason.String(), 1)
	}
	return nil
}

type issuerStatus struct {
	Name       string `json:"name"`
	Authorized bool   `json:"authorized"`
}

func issuerStatusAction(cCtx *cli.Context, env *flags.Env) error {
	name := cCtx.Args().First()
	if name == "" {
		return fmt.Errorf("%w: issuer name is required", interfaces.ErrInput)
	}

	client, err := env.Client(cCtx.Context)
	if err != nil {
		return err
	}

	authorized, err := client.QueryIssuerAuthorization(cCtx.Context, name)
	if err != nil {
		return err
	}
	return printJSON(cCtx, issuerStatus{Name: name, Authorized: authorized})
}

type adminStatus struct {
	Address       interfaces.Identity `json:"address"`
	Administrator bool                `json:"administrator"`
}

func isAdminAction(cCtx *cli.Context, env *flags.Env) error {
	client, err := env.Client(cCtx.Context)
	if err != nil {
		return err
	}

	var identity interfaces.Identity
	if arg := cCtx.Args().First(); arg != "" {
		identity, err = interfaces.ParseIdentity(arg)
	} else if env.Agent != nil {
		identity, err = registry.ConnectedAccount(cCtx.Context, env.Agent)
	} else {
		err = fmt.Errorf("%w: address is required without a signer", interfaces.ErrInput)
	}
	if err != nil {
		return err
	}

	isAdmin, err := registry.NewGuard(client).IsAdministrator(cCtx.Context, identity)
	if err != nil {
		return err
	}
	return printJSON(cCtx, adminStatus{Address: identity, Administrator: isAdmin})
}

func authorizeIssuerAction(cCtx *cli.Context, env *flags.Env) error {
	address, err := interfaces.ParseIdentity(cCtx.String(flagAddress.Name))
	if err != nil {
		return err
	}

	client, err := env.SigningClient(cCtx.Context)
	if err != nil {
		return err
	}

	tx, err := registry.NewAdministration(client, env.Log).AuthorizeIssuer(cCtx.Context, cCtx.String(flagName.Name), address)
	if err != nil {
		return err
	}
	return reportTx(cCtx, tx, txReport{})
}

func publishAction(cCtx *cli.Context, env *flags.Env) error {
	document, err := readDocument(cCtx, cCtx.Args().First())
	if err != nil {
		return err
	}

	cfg := issuance.Config{Log: env.Log}
	if uris := cCtx.StringSlice(flagArchive.Name); len(uris) > 0 {
		backend, err := storage.NewStorageBackendFactory(env.Log).BackendFromURIs(uris)
		if err != nil {
			return fmt.Errorf("could not open archive storage: %w", err)
		}
		cfg.Archive = storage.NewArchive(backend, nil, env.Log)
	}

	client, err := env.SigningClient(cCtx.Context)
	if err != nil {
		return err
	}

	issuer, err := issuance.NewIssuer(client, cfg)
	if err != nil {
		return err
	}

	pub, err := issuer.Publish(cCtx.Context, document, cCtx.String(flagIssuer.Name), cCtx.String(flagDegree.Name))
	if err != nil {
		return err
	}
	return reportTx(cCtx, pub.Tx, txReport{Fingerprint: &pub.Fingerprint, Archived: pub.Archived})
}

type txReport struct {
	Method      string                  `json:"method"`
	TxHash      string                  `json:"tx_hash,omitempty"`
	State       string                  `json:"state"`
	Fingerprint *interfaces.Fingerprint `json:"fingerprint,omitempty"`
	Archived    bool                    `json:"archived,omitempty"`
	Receipt     *registry.Receipt       `json:"receipt,omitempty"`
	Failure     string                  `json:"failure,omitempty"`
}

// reportTx prints the transaction, waiting for its outcome when --wait is
// set. A failed transaction is printed and returned as the error.
func reportTx(cCtx *cli.Context, tx *registry.PendingTransaction, report txReport) error {
	var waitErr error
	if cCtx.Bool(flags.WaitFlag.Name) {
		ctx, cancel := context.WithTimeout(cCtx.Context, cCtx.Duration(flags.ConfirmTimeoutFlag.Name))
		receipt, err := tx.Wait(ctx)
		cancel()
		if err == nil {
			report.Receipt = &receipt
		}
		waitErr = err
	}

	report.Method = tx.Method()
	report.State = tx.State().String()
	if hash := tx.Hash(); hash != (common.Hash{}) {
		report.TxHash = hash.Hex()
	}
	if failure := tx.Failure(); failure != nil {
		report.Failure = failure.Error()
		waitErr = failure
	}

	if err := printJSON(cCtx, report); err != nil {
		return err
	}
	return waitErr
}

type resolution struct {
	Deployment   interfaces.NetworkDeployment `json:"deployment"`
	Source       string                       `json:"source"`
	AgentChainID uint64                       `json:"agent_chain_id,omitempty"`
	Error        string                       `json:"error,omitempty"`
}

func networkResolveAction(cCtx *cli.Context, env *flags.Env) error {
	res, err := env.Resolver.ResolveCurrent(cCtx.Context)
	if err != nil {
		return err
	}

	out := resolution{
		Deployment:   res.Deployment,
		Source:       res.Source.String(),
		AgentChainID: res.AgentChainID,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return printJSON(cCtx, out)
}

func networkSwitchAction(cCtx *cli.Context, env *flags.Env) error {
	key := cCtx.Args().First()
	if key == "" {
		return fmt.Errorf("%w: network key is required", interfaces.ErrInput)
	}
	if env.Agent == nil {
		return fmt.Errorf("%w: no signer configured, pass --%s or --%s", interfaces.ErrInput, flags.WalletRpcFlag.Name, flags.PrivateKeyFlag.Name)
	}

	if err := env.Resolver.EnsureNetwork(cCtx.Context, key); err != nil {
		return err
	}

	d, _ := env.Resolver.Deployment(key)
	return printJSON(cCtx, d)
}

func networkSetAddressAction(cCtx *cli.Context, env *flags.Env) error {
	if cCtx.NArg() != 2 {
		return fmt.Errorf("%w: expected KEY ADDRESS", interfaces.ErrInput)
	}
	address, err := interfaces.ParseIdentity(cCtx.Args().Get(1))
	if err != nil {
		return err
	}

	if env.Overrides == nil {
		env.Log.Warn("No --overrides storage configured, the address is not persisted")
	}

	key := cCtx.Args().Get(0)
	if err := env.Resolver.SetRegistryAddress(cCtx.Context, key, address); err != nil {
		return err
	}

	d, _ := env.Resolver.Deployment(key)
	return printJSON(cCtx, d)
}

func networkListAction(cCtx *cli.Context, env *flags.Env) error {
	return printJSON(cCtx, env.Resolver.Deployments())
}

// openDocument opens path, with "-" or an empty path reading stdin.
func openDocument(cCtx *cli.Context, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cCtx.App.Reader, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", interfaces.ErrInput, err)
	}
	return f, func() { f.Close() }, nil
}

func readDocument(cCtx *cli.Context, path string) ([]byte, error) {
	r, closeFn, err := openDocument(cCtx, path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	document, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read document: %w", err)
	}
	return document, nil
}

func printJSON(cCtx *cli.Context, v any) error {
	enc := json.NewEncoder(cCtx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
