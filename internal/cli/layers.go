package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"relax3d/internal/config"
)

func newLayersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "layers", Short: "List, show and edit layer parameters", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("layers requires a subcommand: list|show|set")
	}}

	list := &cobra.Command{Use: "list", Short: "List configured layers", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.config()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tZMIN\tZMAX\tPOTENTIALS")
		for _, name := range cfg.LayerNames() {
			l := cfg.Layers[name]
			fmt.Fprintf(tw, "%s\t%g\t%g\t%v\n", name, l.ZMin, l.ZMax, l.Potentials)
		}
		return tw.Flush()
	}}

	show := &cobra.Command{Use: "show <name>", Short: "Print one layer as YAML", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.config()
		if err != nil {
			return err
		}
		l, err := cfg.Layer(args[0])
		if err != nil {
			return err
		}
		b, err := yaml.Marshal(map[string]config.Layer{args[0]: l})
		if err != nil {
			return err
		}
		_, err = app.Out.Write(b)
		return err
	}}

	var (
		zmin, zmax float64
		potentials []int
		file       string
	)
	set := &cobra.Command{
		Use:     "set <name>",
		Short:   "Add or replace a layer and save the layers file",
		Example: "  relax3d layers set L12 --zmin -1.5 --zmax 1.5 --potentials 0,100,-100",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return err
			}
			path := file
			if path == "" {
				path = cfg.LayersFile
			}
			if path == "" {
				return errors.New("no layers file: set layers_file in the config or pass --file")
			}
			if err := cfg.SetLayer(args[0], config.Layer{ZMin: zmin, ZMax: zmax, Potentials: potentials}); err != nil {
				return err
			}
			if err := cfg.SaveLayers(path); err != nil {
				return fmt.Errorf("save layers: %w", err)
			}
			log := app.logger()
			log.Info().Str("layer", args[0]).Str("file", path).Msg("layer saved")
			fmt.Fprintf(app.Out, "saved %s to %s\n", args[0], path)
			return nil
		},
	}
	set.Flags().Float64Var(&zmin, "zmin", 0, "Lower z bound")
	set.Flags().Float64Var(&zmax, "zmax", 0, "Upper z bound")
	set.Flags().IntSliceVar(&potentials, "potentials", nil, "Electrode potentials, one per range")
	set.Flags().StringVar(&file, "file", "", "Layers file to write (defaults to layers_file)")
	_ = set.MarkFlagRequired("potentials")

	cmd.AddCommand(list, show, set)
	return cmd
}
