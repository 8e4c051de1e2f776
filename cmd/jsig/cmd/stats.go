package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/corey/jsig/internal/adapters/bbolt"
	"github.com/corey/jsig/internal/ports"
)

var statsCmd = &cobra.Command{
	Use:   "stats [root]",
	Short: "Summarize the persisted heap surface",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		root := projectRoot(args)
		store, err := bbolt.NewStore(filepath.Join(root, ".jsig", "jsig.db"))
		if err != nil {
			return err
		}
		defer store.Close()

		snap, err := store.LoadSnapshot(filepath.Base(root))
		if err != nil {
			return err
		}
		if snap == nil {
			fmt.Println("no snapshot; run `jsig parse` first")
			return nil
		}

		counts := make(map[ports.SnapshotKind]int)
		for _, e := range snap.Entries {
			counts[e.Kind]++
		}
		fmt.Printf("entries     %d\n", len(snap.Entries))
		fmt.Printf("parsed      %d\n", counts[ports.SnapParsed])
		fmt.Printf("unparsed    %d\n", counts[ports.SnapUnparsed])
		fmt.Printf("package     %d\n", counts[ports.SnapPackage])
		fmt.Printf("not found   %d\n", counts[ports.SnapNotFound])
		return nil
	},
}

var wipeCmd = &cobra.Command{
	Use:   "wipe [root]",
	Short: "Delete the persisted heap state for a project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		root := projectRoot(args)
		dbPath := filepath.Join(root, ".jsig", "jsig.db")
		store, err := bbolt.NewStore(dbPath)
		if err != nil {
			return err
		}
		if err := store.DeleteProject(filepath.Base(root)); err != nil {
			store.Close()
			return err
		}
		store.Close()
		fmt.Fprintf(os.Stderr, "wiped %s\n", dbPath)
		return nil
	},
}
