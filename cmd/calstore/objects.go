package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/cyp0633/caldorafs/storage"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newObjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "objects",
		Short: "List, read, write and delete calendar objects",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <calendar>",
			Short: "List the objects of a calendar",
			Args:  cobra.ExactArgs(1),
			RunE:  a.runObjectsList,
		},
		&cobra.Command{
			Use:   "get <calendar> <uid>",
			Short: "Print an object as iCalendar",
			Args:  cobra.ExactArgs(2),
			RunE:  a.runObjectsGet,
		},
		&cobra.Command{
			Use:   "put <calendar> <file.ics|->",
			Short: "Store every object of an iCalendar file",
			Long: `put splits the file into objects by UID and stores each one, replacing
any object with the same UID. Components without a UID get a fresh one.`,
			Args: cobra.ExactArgs(2),
			RunE: a.runObjectsPut,
		},
		&cobra.Command{
			Use:   "delete <calendar> <href-or-uid>",
			Short: "Delete an object",
			Args:  cobra.ExactArgs(2),
			RunE:  a.runObjectsDelete,
		},
	)
	return cmd
}

func (a *app) runObjectsList(cmd *cobra.Command, args []string) error {
	cal, err := a.store.GetCalendar(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	seq, err := a.store.ListObjects(cmd.Context(), cal)
	if err != nil {
		return err
	}
	return printObjects(cmd, seq)
}

func (a *app) runObjectsGet(cmd *cobra.Command, args []string) error {
	cal, err := a.store.GetCalendar(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	obj, err := a.store.GetObject(cmd.Context(), cal, args[1])
	if err != nil {
		return err
	}
	data, err := storage.EncodeObject(storage.ICalCodec{}, obj)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func (a *app) runObjectsPut(cmd *cobra.Command, args []string) error {
	cal, err := a.store.GetCalendar(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	data, err := readInput(cmd, args[1])
	if err != nil {
		return err
	}
	doc, err := storage.ICalCodec{}.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode %s: %w", args[1], err)
	}

	objects, missing := storage.SplitCalendar(doc)
	for _, comp := range missing {
		obj, err := withNewUID(comp)
		if err != nil {
			return err
		}
		objects = append(objects, obj)
	}
	if len(objects) == 0 {
		return fmt.Errorf("%s holds no calendar objects", args[1])
	}

	for _, obj := range objects {
		saved, err := a.store.SaveObject(cmd.Context(), cal, obj)
		if err != nil {
			return fmt.Errorf("save %s: %w", obj.UID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", saved.Path, saved.ETag)
	}
	return nil
}

// withNewUID assigns a random UID to a component that lacks one.
func withNewUID(comp *ical.Component) (*storage.CalendarObject, error) {
	comp.Props.SetText(ical.PropUID, uuid.NewString())
	return storage.NewCalendarObject(comp)
}

func (a *app) runObjectsDelete(cmd *cobra.Command, args []string) error {
	cal, err := a.store.GetCalendar(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return a.store.DeleteObject(cmd.Context(), cal, args[1])
}

// readInput reads a named file, or standard input for "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}
