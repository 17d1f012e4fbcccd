package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openmni/mnipipe/pkg/models"
)

func newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Resolve bundled reference models",
		Long: `Resolve bundled reference models under the shared data root. The root
comes from the data_path config key or the MNI_DATAPATH environment
variable.`,
	}

	cmd.AddCommand(newModelsPathCommand())
	cmd.AddCommand(newModelsExportCommand())

	return cmd
}

func newModelsPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "path RELATIVE_PATH",
		Short:   "Print the absolute path of a bundled reference file",
		Example: `  mnipipe models path surface-extraction/white_model_320.obj`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := newEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			resolver, err := models.NewResolver(env.pipeline, env.cfg.DataPath)
			if err != nil {
				return err
			}
			abs, err := resolver.Path(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), abs)
			return nil
		},
	}
}

func newModelsExportCommand() *cobra.Command {
	var side string

	cmd := &cobra.Command{
		Use:   "export OUTPUT.obj",
		Short: "Export the white matter starting model, positioned for a hemisphere",
		Long: `Export the 320-triangle white matter starting model. With --side the
model is positioned for the given hemisphere: left slides 25 units left,
right is mirrored across x and slides 25 units right.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := newEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			resolver, err := models.NewResolver(env.pipeline, env.cfg.DataPath)
			if err != nil {
				return err
			}
			model, err := resolver.SphereModel(ctx, models.Side(side))
			if err != nil {
				return err
			}
			return model.Save(args[0])
		},
	}

	cmd.Flags().StringVar(&side, "side", "", "hemisphere side (left, right)")
	return cmd
}
