package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/image/bmp"

	emucore "github.com/user-none/retrobackend/api"
	"github.com/user-none/retrobackend/internal/frame"
	"github.com/user-none/retrobackend/internal/headless"
	"github.com/user-none/retrobackend/internal/retro"
)

var (
	flagFrames     int
	flagWAV        string
	flagScreenshot string
	flagSystemDir  string
	flagSaveDir    string
)

var probeCmd = &cobra.Command{
	Use:   "probe <content>",
	Short: "Load content and run frames headless",
	Long: `Loads content through the same path a frontend uses, runs a number of
frames, round trips a save state and reports what the core negotiated.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().IntVarP(&flagFrames, "frames", "n", 60, "Number of frames to run")
	probeCmd.Flags().StringVar(&flagWAV, "wav", "", "Write the produced audio to a WAV file")
	probeCmd.Flags().StringVar(&flagScreenshot, "screenshot", "", "Write the last frame to a BMP file")
	probeCmd.Flags().StringVar(&flagSystemDir, "system-dir", "", "System directory reported to the core")
	probeCmd.Flags().StringVar(&flagSaveDir, "save-dir", "", "Save directory reported to the core")
}

func runProbe(cmd *cobra.Command, args []string) error {
	c, err := lookupCore()
	if err != nil {
		return err
	}
	if flagFrames <= 0 {
		return errors.New("--frames must be positive")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	host := headless.New()
	host.SystemDir = flagSystemDir
	host.SaveDir = flagSaveDir
	host.CanDupe = true
	host.NoLogInterface = true
	// Screenshots are built from XRGB8888.
	host.AcceptFormats = []emucore.PixelFormat{emucore.PixelFormatXRGB8888}

	h := retro.New(c.newCore(), c.mapping)
	h.SetEnvironment(host)
	h.SetCallbacks(host.Callbacks())
	h.Init()
	defer h.Deinit()

	if err := h.LoadGame(emucore.DataGame(args[0], data)); err != nil {
		return fmt.Errorf("load %s: %w", args[0], err)
	}

	dropped := 0
	for i := 0; i < flagFrames; i++ {
		if err := h.Run(); err != nil {
			if !errors.Is(err, frame.ErrFrameDropped) {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			dropped++
		}
	}

	stateSize, stateErr := probeState(h)

	av, _ := h.AVInfo()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "core:         %s %s\n", h.SystemInfo().CoreName, h.SystemInfo().CoreVersion)
	if ct := h.Content(); ct != nil {
		fmt.Fprintf(out, "content:      %s (%d bytes, crc32 %08x)\n", ct.Name, len(ct.Data), ct.CRC32)
	}
	fmt.Fprintf(out, "geometry:     %dx%d (max %dx%d, aspect %.3f)\n",
		av.Geometry.BaseWidth, av.Geometry.BaseHeight,
		av.Geometry.MaxWidth, av.Geometry.MaxHeight, av.Geometry.AspectRatio)
	fmt.Fprintf(out, "timing:       %.2f fps, %.0f Hz\n", av.Timing.FPS, av.Timing.SampleRate)
	fmt.Fprintf(out, "pixel format: %s\n", host.Format)
	fmt.Fprintf(out, "region:       %s\n", h.Region())
	fmt.Fprintf(out, "frames:       %d delivered, %d dupes, %d dropped\n", host.Frames, host.Dupes, dropped)
	fmt.Fprintf(out, "audio:        %d stereo frames\n", len(host.Audio)/2)
	if stateErr != nil {
		fmt.Fprintf(out, "save state:   failed: %v\n", stateErr)
	} else {
		fmt.Fprintf(out, "save state:   %d bytes, round trip ok\n", stateSize)
	}

	if flagWAV != "" {
		if err := writeWAV(flagWAV, int(av.Timing.SampleRate), host.Audio); err != nil {
			return err
		}
		logger.Info("wrote audio", "path", flagWAV)
	}
	if flagScreenshot != "" {
		if err := writeScreenshot(flagScreenshot, host.LastFrame); err != nil {
			return err
		}
		logger.Info("wrote screenshot", "path", flagScreenshot)
	}
	return nil
}

// probeState serializes then restores the current state.
func probeState(h *retro.Handle) (int, error) {
	size, err := h.SerializeSize()
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, errors.New("core does not support save states")
	}
	buf := make([]byte, size)
	if err := h.Serialize(buf); err != nil {
		return size, err
	}
	return size, h.Unserialize(buf)
}

func writeWAV(path string, rate int, samples []int16) error {
	c, err := frame.NewCapture(path, rate)
	if err != nil {
		return err
	}
	if err := c.Write(samples); err != nil {
		c.Close()
		return err
	}
	return c.Close()
}

func writeScreenshot(path string, f headless.Frame) error {
	img, err := frameImage(f)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create screenshot: %w", err)
	}
	defer out.Close()
	if err := bmp.Encode(out, img); err != nil {
		return fmt.Errorf("encode screenshot: %w", err)
	}
	return nil
}

// frameImage converts an XRGB8888 frame to an image.
func frameImage(f headless.Frame) (*image.RGBA, error) {
	if f.Format != emucore.PixelFormatXRGB8888 {
		return nil, fmt.Errorf("screenshot needs %s frames, got %s", emucore.PixelFormatXRGB8888, f.Format)
	}
	if f.Width <= 0 || f.Height <= 0 || len(f.Pixels) < f.Stride*(f.Height-1)+f.Width*4 {
		return nil, errors.New("no frame to capture")
	}

	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		row := f.Pixels[y*f.Stride:]
		for x := 0; x < f.Width; x++ {
			p := row[x*4:]
			img.SetRGBA(x, y, color.RGBA{R: p[2], G: p[1], B: p[0], A: 0xFF})
		}
	}
	return img, nil
}
