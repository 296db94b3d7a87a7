package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/caldorafs/storage"
	"github.com/spf13/cobra"
)

func newCalendarsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List, create and inspect calendars",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all calendars",
		Args:  cobra.NoArgs,
		RunE:  a.runCalendarsList,
	}

	var cal storage.Calendar
	var components string
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a calendar, or show the existing one of that name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cal.Path = args[0]
			cal.SupportedComponents = splitList(components)
			return a.runCalendarsCreate(cmd, &cal)
		},
	}
	createCmd.Flags().StringVar(&cal.DisplayName, "display-name", "", "Display name")
	createCmd.Flags().StringVar(&cal.Description, "description", "", "Description")
	createCmd.Flags().StringVar(&cal.TimeZone, "timezone", "", "IANA time zone for floating times, e.g. Europe/Berlin")
	createCmd.Flags().StringVar(&cal.Color, "color", "", "Color, e.g. #FF9500")
	createCmd.Flags().StringVar(&components, "components", "", "Accepted components, e.g. VEVENT,VTODO (default: all)")

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a calendar's properties",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runCalendarsShow,
	}

	cmd.AddCommand(listCmd, createCmd, showCmd)
	return cmd
}

func (a *app) runCalendarsList(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	for res := range a.store.ListCalendars(cmd.Context()) {
		cal, err := res.Get()
		if err != nil {
			if err := report(cmd, err); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", cal.Path, cal.DisplayName, componentList(cal))
	}
	return nil
}

func (a *app) runCalendarsCreate(cmd *cobra.Command, cal *storage.Calendar) error {
	if cal.TimeZone != "" {
		if _, err := time.LoadLocation(cal.TimeZone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}
	created, err := a.store.CreateCalendar(cmd.Context(), cal)
	if err != nil {
		return err
	}
	printCalendar(cmd, created)
	return nil
}

func (a *app) runCalendarsShow(cmd *cobra.Command, args []string) error {
	cal, err := a.store.GetCalendar(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printCalendar(cmd, cal)
	return nil
}

func printCalendar(cmd *cobra.Command, cal *storage.Calendar) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "path:          %s\n", cal.Path)
	fmt.Fprintf(out, "display name:  %s\n", cal.DisplayName)
	fmt.Fprintf(out, "description:   %s\n", cal.Description)
	fmt.Fprintf(out, "timezone:      %s\n", cal.TimeZone)
	fmt.Fprintf(out, "color:         %s\n", cal.Color)
	fmt.Fprintf(out, "components:    %s\n", componentList(cal))
	fmt.Fprintf(out, "created:       %s\n", cal.Created.Format(time.RFC3339))
	fmt.Fprintf(out, "last modified: %s\n", cal.LastModified.Format(time.RFC3339))
}

func componentList(cal *storage.Calendar) string {
	if len(cal.SupportedComponents) == 0 {
		return "all"
	}
	return strings.Join(cal.SupportedComponents, ",")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
