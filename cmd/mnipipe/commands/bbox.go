package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newBBoxCommand() *cobra.Command {
	var dilate int

	cmd := &cobra.Command{
		Use:   "bbox INPUT.mnc OUTPUT.mnc",
		Short: "Crop a volume to its bounding box",
		Long: `Crop a MINC volume to its bounding box using mincbbox and mincreshape,
optionally dilating the result by a number of voxels first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := newEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			volume, err := env.pipeline.Volume(args[0])
			if err != nil {
				return err
			}

			if dilate > 0 {
				volume, err = volume.Dilate(ctx, dilate)
				if err != nil {
					return err
				}
			}

			volume, err = volume.ReshapeBBox(ctx)
			if err != nil {
				return err
			}

			if err := volume.Save(args[1]); err != nil {
				return err
			}
			log.Info().Str("output", args[1]).Msg("bounding box crop complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&dilate, "dilate", 0, "dilate the mask by N voxels before cropping")
	return cmd
}
