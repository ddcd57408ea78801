package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"property-hunter/config"
	"property-hunter/services"
)

func searchesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searches",
		Short: "Manage saved searches",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import saved searches from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			file, err := config.LoadSearchFile(args[0])
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			extractor := services.NewCriteriaExtractor(a.ref)
			for _, entry := range file.Searches {
				search, err := services.BuildSavedSearch(entry, extractor)
				if err != nil {
					return err
				}
				id, err := store.SaveSearch(ctx, search)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved search %d: %s → %s\n", id, search.Name, search.Criteria)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved searches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			searches, err := store.ListSavedSearches(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, s := range searches {
				last := "never"
				if s.LastRunAt != nil {
					last = s.LastRunAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%4d  %-30s %-8s %-28s last run %s\n", s.ID, s.Name, s.Schedule, s.Email, last)
			}
			return nil
		},
	})
	return cmd
}
