package command

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mediareview/database"
	"mediareview/database/importer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var importTimeout time.Duration

var importCSVCmd = &cobra.Command{
	Use:   "importcsv [dir]",
	Short: "Import catalog fixtures from CSV files",
	Long: `Loads category.csv, genre.csv, titles.csv, genre_title.csv, users.csv,
review.csv and comments.csv from dir (default static/data) in one transaction.
Missing files are skipped; a bad row aborts the whole import.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "static/data"
		if len(args) == 1 {
			dir = args[0]
		}

		_, db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		ctx, cancel := context.WithTimeout(cmd.Context(), importTimeout)
		defer cancel()

		stats, err := importer.New(db).ImportDir(ctx, dir)
		if err != nil {
			return fmt.Errorf("import %s: %w", dir, err)
		}

		tables := make([]string, 0, len(stats))
		for table := range stats {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		for _, table := range tables {
			color.Green("✓ %-13s %d rows", table, stats[table])
		}
		return nil
	},
}

func init() {
	importCSVCmd.Flags().DurationVar(&importTimeout, "timeout", 5*time.Minute, "abort the import after this long")
}
