package cmd

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wangpeng1017/demoocr/internal/config"
	"github.com/wangpeng1017/demoocr/internal/pipeline"
)

func newProcessCmd() *cobra.Command {
	var mimeType string

	cmd := &cobra.Command{
		Use:   "process FILE",
		Short: "Run recognition on a local image or video and print the result",
		Long: `Runs the full recognition pipeline on a local file and prints the
resulting JSON to stdout. The media type is inferred from the file
extension unless --mime is given.`,
		Example: `  demoocr process label.jpg
  demoocr process shelf.mp4
  demoocr process frame.bin --mime image/jpeg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(path))
			}
			if mimeType == "" {
				return fmt.Errorf("could not infer media type for %s, pass --mime", path)
			}

			svc := pipeline.New(cfg)
			result, err := svc.Process(cmd.Context(), data, mimeType, filepath.Base(path))
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&mimeType, "mime", "", "Media type of FILE (e.g. image/jpeg, video/mp4)")

	return cmd
}
