package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/analogdevicesinc/tflite-micro/pkg/cli"
	"github.com/analogdevicesinc/tflite-micro/pkg/imgbin"
)

var (
	img2binSize    string
	img2binPreview string
)

var img2binCmd = &cobra.Command{
	Use:   "img2bin <image> <out.bin>",
	Short: "Convert an image to packed grayscale bytes",
	Long: `Convert a PNG, JPEG, GIF, BMP, TIFF or WebP image to 8-bit grayscale,
resize it bilinearly, and write the row-major pixel bytes. The default
size of 96x96 matches the person-detection model input.`,
	Args: exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, h, err := parseSize(img2binSize)
		if err != nil {
			return err
		}
		img, err := imgbin.ReadFile(args[0])
		if err != nil {
			return cli.Invalid(err)
		}
		g, err := imgbin.Convert(img, w, h)
		if err != nil {
			return err
		}
		if err := imgbin.Save(g, args[1], img2binPreview); err != nil {
			return err
		}
		p := printer(cmd)
		p.Success("wrote %s (%dx%d, %s)", args[1], w, h, cli.FormatBytes(int64(w*h)))
		if img2binPreview != "" {
			p.Info("preview %s", img2binPreview)
		}
		return nil
	},
}

// parseSize parses WIDTHxHEIGHT.
func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, cli.InvalidArgument("size must be WIDTHxHEIGHT, got %q", s)
	}
	w, err1 := strconv.Atoi(ws)
	h, err2 := strconv.Atoi(hs)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, cli.InvalidArgument("size must be WIDTHxHEIGHT, got %q", s)
	}
	return w, h, nil
}

func init() {
	img2binCmd.Flags().StringVar(&img2binSize, "size", "96x96", "output size WIDTHxHEIGHT")
	img2binCmd.Flags().StringVar(&img2binPreview, "preview", "", "also write the resized image as PNG")
	rootCmd.AddCommand(img2binCmd)
}
