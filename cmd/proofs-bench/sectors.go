package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/storage/sealer/basicfs"
	"github.com/filecoin-project/go-proofs/storage/sealer/storiface"
)

var sectorsCmd = &cli.Command{
	Name:      "sectors",
	Usage:     "List the sectors kept by a benchmark run",
	ArgsUsage: "[bench directory]",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "types",
			Value: cli.NewStringSlice(storiface.FTAll.Strings()...),
			Usage: "sector file types to list",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return xerrors.Errorf("expected 1 argument, the bench directory")
		}
		root, err := homedir.Expand(c.Args().First())
		if err != nil {
			return err
		}
		return listSectors(os.Stdout, root, c.StringSlice("types"))
	},
}

func listSectors(w io.Writer, root string, types []string) error {
	var ft storiface.SectorFileType
	for _, s := range types {
		t, err := storiface.TypeFromString(s)
		if err != nil {
			return err
		}
		ft |= t
	}

	sp := &basicfs.Provider{Root: root}
	found, err := sp.List(ft)
	if err != nil {
		return err
	}

	for _, t := range ft.AllSet() {
		ids := found[t]
		sort.Slice(ids, func(i, j int) bool {
			if ids[i].Miner != ids[j].Miner {
				return ids[i].Miner < ids[j].Miner
			}
			return ids[i].Number < ids[j].Number
		})

		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = storiface.SectorName(id)
		}
		if _, err := fmt.Fprintf(w, "%s (%d): %s\n", t, len(ids), strings.Join(names, " ")); err != nil {
			return err
		}
	}
	return nil
}

