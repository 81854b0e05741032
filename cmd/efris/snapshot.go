package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Write a consistent copy of the SQLite store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Destination file (must not exist)", Required: true},
		},
		Action: func(c *cli.Context) error {
			db, _, err := openStore(c)
			if err != nil {
				return err
			}
			defer db.Close()

			dest := c.String("out")
			if err := db.Snapshot(c.Context, dest); err != nil {
				return err
			}
			st, err := os.Stat(dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %s (%s)\n", dest, humanize.Bytes(uint64(st.Size())))
			return nil
		},
	}
}
