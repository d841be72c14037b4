package main

import (
	"log"
	"os"

	"github.com/ruteri/diplomachain/cmd/flags"
	"github.com/ruteri/diplomachain/common"
	"github.com/urfave/cli/v2"
)

var flagIssuer = &cli.StringFlag{
	Name:     "issuer",
	Required: true,
	Usage:    "issuer (university) name the document is expected to come from",
}

var flagFingerprint = &cli.StringFlag{
	Name:  "fingerprint",
	Usage: "0x-prefixed hex fingerprint to check instead of a document file",
}

var flagDegree = &cli.StringFlag{
	Name:  "degree",
	Usage: "degree type label recorded with the diploma, empty for unspecified",
}

var flagArchive = &cli.StringSliceFlag{
	Name:  "archive",
	Usage: "storage URIs the document is archived to before publishing",
}

var flagName = &cli.StringFlag{
	Name:     "name",
	Required: true,
	Usage:    "issuer name to authorize",
}

var flagAddress = &cli.StringFlag{
	Name:     "address",
	Required: true,
	Usage:    "account the issuer publishes from",
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	globalFlags := append([]cli.Flag{flags.LogServiceFlagFn(common.ServiceName)}, flags.LogFlags...)
	globalFlags = append(globalFlags, flags.LedgerFlags...)

	return &cli.App{
		Name:  "diplomachain",
		Usage: "Publish and verify diploma records on the registry",
		Flags: globalFlags,
		Commands: []*cli.Command{
			{
				Name:      "fingerprint",
				Usage:     "print the fingerprint of a document",
				ArgsUsage: "FILE",
				Action:    fingerprintAction,
			},
			{
				Name:      "verify",
				Usage:     "check a document or fingerprint against an issuer",
				ArgsUsage: "[FILE]",
				Flags:     []cli.Flag{flagIssuer, flagFingerprint},
				Action:    withEnv(verifyAction),
			},
			{
				Name:      "issuer-status",
				Usage:     "report whether an issuer name is authorized",
				ArgsUsage: "NAME",
				Action:    withEnv(issuerStatusAction),
			},
			{
				Name:      "is-admin",
				Usage:     "report whether an account holds the administrator role",
				ArgsUsage: "[ADDRESS]",
				Action:    withEnv(isAdminAction),
			},
			{
				Name:   "authorize-issuer",
				Usage:  "authorize an issuer name for an account (administrators only)",
				Flags:  []cli.Flag{flagName, flagAddress, flags.WaitFlag, flags.ConfirmTimeoutFlag},
				Action: withEnv(authorizeIssuerAction),
			},
			{
				Name:      "publish",
				Usage:     "publish a diploma record for a document",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{flagIssuer, flagDegree, flagArchive, flags.WaitFlag, flags.ConfirmTimeoutFlag},
				Action:    withEnv(publishAction),
			},
			{
				Name:  "network",
				Usage: "inspect and select registry deployments",
				Subcommands: []*cli.Command{
					{
						Name:   "resolve",
						Usage:  "resolve the deployment for the signing agent's current chain",
						Action: withEnv(networkResolveAction),
					},
					{
						Name:      "switch",
						Usage:     "move the signing agent onto a network, registering it if needed",
						ArgsUsage: "KEY",
						Action:    withEnv(networkSwitchAction),
					},
					{
						Name:      "set-address",
						Usage:     "record a registry address override for a network",
						ArgsUsage: "KEY ADDRESS",
						Action:    withEnv(networkSetAddressAction),
					},
					{
						Name:   "list",
						Usage:  "list known deployments",
						Action: withEnv(networkListAction),
					},
				},
			},
		},
	}
}
