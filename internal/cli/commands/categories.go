package commands

import (
	"sift/internal/core/category"

	"github.com/spf13/cobra"
)

// NewCategoriesCommand creates the categories command
func NewCategoriesCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Print the effective category table",
		Long: `Print the category table a run would use, in the YAML format --categories accepts.

Without --categories (or SIFT_CATEGORIES) the embedded default table is printed;
redirect it to a file to start a custom table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("categories") {
				path = conf().MayString("CATEGORIES", "")
			}
			t, err := category.Load(path)
			if err != nil {
				return err
			}
			out, err := t.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&path, "categories", "", "Category table YAML file (default: embedded table)")
	return cmd
}
