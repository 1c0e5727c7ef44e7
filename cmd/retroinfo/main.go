// retroinfo inspects the cores built into this module without a frontend.
//
// Usage:
//
//	retroinfo info              - Write the libretro .info file for a core
//	retroinfo options           - List a core's options and their defaults
//	retroinfo probe <content>   - Load content and run frames headless
//
// Global flags:
//
//	--core <name>   - Core to inspect (default: retrodemo)
//	--verbose       - Log at debug level
package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	emucore "github.com/user-none/retrobackend/api"
	"github.com/user-none/retrobackend/demo"
	"github.com/user-none/retrobackend/internal/logging"
)

// coreEntry is a core compiled into the tool.
type coreEntry struct {
	newCore func() emucore.Core
	mapping []emucore.RetropadMapping
}

var cores = map[string]coreEntry{
	demo.Info.CoreName: {newCore: demo.New, mapping: demo.Mapping},
}

var (
	// Global flags
	flagCore    string
	flagVerbose bool

	logger *log.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "retroinfo",
	Short: "Inspect libretro cores built with retrobackend",
	Long: `retroinfo describes and exercises the cores compiled into it using an
in-process frontend, which is useful for checking a core before loading it
in a real libretro frontend.

Examples:
  retroinfo info > retrodemo_libretro.info
  retroinfo options
  retroinfo probe --frames 120 --screenshot shot.bmp game.rdemo`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := log.InfoLevel
		if flagVerbose {
			level = log.DebugLevel
		}
		logger = logging.New("retroinfo", level)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagCore, "core", demo.Info.CoreName, "Core to inspect")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(optionsCmd)
	rootCmd.AddCommand(probeCmd)
}

// lookupCore returns the selected core.
func lookupCore() (coreEntry, error) {
	c, ok := cores[flagCore]
	if !ok {
		names := make([]string, 0, len(cores))
		for name := range cores {
			names = append(names, name)
		}
		slices.Sort(names)
		return coreEntry{}, fmt.Errorf("unknown core %q (available: %s)", flagCore, strings.Join(names, ", "))
	}
	return c, nil
}
