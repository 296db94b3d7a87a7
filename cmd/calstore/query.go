package main

import (
	"fmt"
	"iter"

	calendarquery "github.com/cyp0633/caldorafs/internal/xml/calendar-query"
	"github.com/cyp0633/caldorafs/storage"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

func newQueryCmd(a *app) *cobra.Command {
	var calendar string
	var limit int

	cmd := &cobra.Command{
		Use:   "query <filter.xml|->",
		Short: "Find objects matching a CalDAV filter",
		Long: `query reads a CalDAV calendar-query REPORT body, or a bare <C:filter>
document, and prints the matching objects. A <C:limit> in the document is
used unless --limit is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			req, err := calendarquery.ParseRequest(data)
			if err != nil {
				return err
			}
			q := req.Query(calendar)
			if cmd.Flags().Changed("limit") {
				q.Limit = limit
			}
			seq, err := a.store.QueryObjects(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printObjects(cmd, seq)
		},
	}
	cmd.Flags().StringVar(&calendar, "calendar", "", "Only search this calendar (default: all)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many matches (0: no limit)")
	return cmd
}

// printObjects writes one line per object and reports per-entry failures.
func printObjects(cmd *cobra.Command, seq iter.Seq[mo.Result[*storage.CalendarObject]]) error {
	out := cmd.OutOrStdout()
	for res := range seq {
		obj, err := res.Get()
		if err != nil {
			if err := report(cmd, err); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", obj.Path, obj.Kind, obj.UID, obj.ETag)
	}
	return nil
}
