package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ashureev/crackd/internal/mentor"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newProblemsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "problems [query]",
		Short: "List or search the problem catalog",
		Long: `List the problems the mentor recognizes.

With a query, problems are fuzzy-matched by title and ranked best first.`,
		Example: `  crackd problems
  crackd problems islands`,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := mentor.LoadCatalog(root.catalogPath)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			found := catalog.Search(query)
			if len(found) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No problems match %q\n", query)
				return nil
			}

			bold := color.New(color.Bold).SprintFunc()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, bold("SLUG")+"\t"+bold("TITLE")+"\t"+bold("DIFFICULTY")+"\t"+bold("TAGS"))
			for _, p := range found {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Slug, p.Title, difficulty(p.Difficulty), strings.Join(p.Tags, ", "))
			}
			return tw.Flush()
		},
	}
}

func difficulty(d string) string {
	switch strings.ToLower(d) {
	case "easy":
		return color.GreenString(d)
	case "medium":
		return color.YellowString(d)
	case "hard":
		return color.RedString(d)
	}
	return d
}
