package main

import (
	"fmt"
	"os"
	"path/filepath"

	"virtualcare/internal/imaging"
	"virtualcare/internal/media"

	"github.com/spf13/cobra"
)

var prepareOut string

// prepareCmd runs the image pipeline on a single file
var prepareCmd = &cobra.Command{
	Use:   "prepare <image>",
	Short: "Compress an image the way the wizard does before upload",
	Long: `Validates an image against the upload rules, then resizes and
re-encodes it to JPEG exactly as a submission would.

Example:
  intake prepare IMG_0412.png -o upload.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runPrepare,
}

func init() {
	prepareCmd.Flags().StringVarP(&prepareOut, "output", "o", "", "Output path (default: <name>.jpg next to the input)")
}

func runPrepare(cmd *cobra.Command, args []string) error {
	in, err := media.Open(args[0])
	if err != nil {
		return err
	}
	out, err := imaging.DefaultPipeline().Prepare(cmd.Context(), in)
	if err != nil {
		return err
	}

	dest := prepareOut
	if dest == "" {
		dest = filepath.Join(filepath.Dir(args[0]), out.Name)
	}
	if err := os.WriteFile(dest, out.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s MB -> %s MB (%s)\n", in.Name, in.SizeMB(), out.SizeMB(), dest)
	return nil
}
