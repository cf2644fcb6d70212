package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/filecoin-project/go-proofs/build"
	"github.com/filecoin-project/go-proofs/lib/proofslog"
)

var log = logging.Logger("proofs-bench")

func main() {
	proofslog.SetupLogLevels()

	log.Info("Starting proofs-bench")

	app := &cli.App{
		Name:    "proofs-bench",
		Usage:   "Benchmark sealing and proof performance on your hardware",
		Version: build.UserVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "~/.proofs/config.toml",
				Usage:   "path to the proofs configuration file",
				EnvVars: []string{"PROOFS_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			sealingCmd,
			sectorsCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Warnf("%+v", err)
		os.Exit(1)
	}
}
