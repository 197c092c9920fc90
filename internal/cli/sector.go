package cli

import (
	"github.com/spf13/cobra"

	"ipo-tracker/internal/models"
)

func newSectorCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sector",
		Short: "Manage sectors",
		Long:  "Sectors are shared by all users and group IPOs for sector-level alert rules.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.store()
			if err != nil {
				return err
			}
			sectors, err := s.ListSectors(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(sectors)
			}
			if len(sectors) == 0 {
				output.Dim("No sectors yet. Add one with 'ipotracker sector add <name>'.")
				return nil
			}
			table := NewTable(output, "NAME", "ID")
			for _, sec := range sectors {
				table.AddRow(sec.Name, sec.ID)
			}
			table.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a sector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.store()
			if err != nil {
				return err
			}
			sec, err := s.CreateSector(cmd.Context(), models.SectorInput{Name: args[0]})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(sec)
			}
			output.Success("✓ Added sector %s (%s)", sec.Name, sec.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a sector that no IPO references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.store()
			if err != nil {
				return err
			}
			id, err := resolveSector(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			if err := s.DeleteSector(cmd.Context(), id); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": id})
			}
			output.Success("✓ Deleted sector %s", args[0])
			return nil
		},
	})

	return cmd
}
