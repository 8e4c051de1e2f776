package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/jsig/internal/ctxlog"
)

var parseCmd = &cobra.Command{
	Use:   "parse [root]",
	Short: "Cold-parse every input under the project root",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		ctx := c.Context()
		a, err := openApp(ctx, projectRoot(args))
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.ParseAll(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("parsed      %d\n", len(res.Parsed))
		fmt.Printf("unparsed    %d\n", len(res.Unparsed))
		fmt.Printf("package     %d\n", len(res.PackageKeys))
		fmt.Printf("not found   %d\n", len(res.NotFound))
		fmt.Printf("failed      %d\n", len(res.FailedKeys))
		for i, key := range res.FailedKeys {
			fmt.Printf("  %s: %s\n", key.Path, res.FailureReasons[i].String())
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [root]",
	Short: "Parse the project, then reparse on every file change",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		ctx := ctxlog.WithLogger(c.Context(), setupLogger())
		a, err := openApp(ctx, projectRoot(args))
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.ParseAll(ctx); err != nil {
			return err
		}
		return a.WatchAndReparse(ctx)
	},
}
