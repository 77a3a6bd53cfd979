package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/csim/recording"
)

func newSessionsCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sessions <recording.sqlite3>",
		Short:         "List the sessions stored in a recording database.",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := recording.OpenDB(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			sessions, err := recording.ReadSessions(db)
			if err != nil {
				return err
			}

			for _, s := range sessions {
				_, _ = fmt.Fprintf(stdout, "%s %s %s policy:%s hits:%d misses:%d evictions:%d\n",
					s.ID, s.Trace, s.Geometry, s.Policy,
					s.Stats.Hits, s.Stats.Misses, s.Stats.Evictions)
			}

			return nil
		},
	}

	cmd.SetFlagErrorFunc(flagError)

	return cmd
}
