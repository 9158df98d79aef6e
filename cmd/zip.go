package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/postal-enrich/internal/model"
	"github.com/sells-group/postal-enrich/internal/usps"
)

var zipCmd = &cobra.Command{
	Use:   "zip <code>",
	Short: "Resolve a ZIP code to its USPS city names",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("zip", false); err != nil {
			return err
		}

		noCache, _ := cmd.Flags().GetBool("no-cache")
		var cache usps.CityCache
		if !noCache {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			cache = st
		}

		cities, err := newResolver(logger, cache).Resolve(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "zip %s", args[0])
		}

		out := cmd.OutOrStdout()
		if len(cities) == 0 {
			_, _ = fmt.Fprintln(out, "No cities found.")
			return nil
		}
		for _, label := range cities {
			c := model.ParseCityCandidate(label)
			_, _ = fmt.Fprintf(out, "%s\t%s\n", c.City, c.District)
		}
		return nil
	},
}

func init() {
	zipCmd.Flags().Bool("no-cache", false, "skip the city cache and always launch the browser")
	rootCmd.AddCommand(zipCmd)
}
