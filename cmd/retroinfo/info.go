package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	emucore "github.com/user-none/retrobackend/api"
)

var flagInfoOut string

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Write the libretro .info file for a core",
	Long:  `Writes the core info file frontends use to list a core before loading it.`,
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().StringVarP(&flagInfoOut, "out", "o", "", "Write to a file instead of stdout")
}

func runInfo(cmd *cobra.Command, args []string) error {
	c, err := lookupCore()
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if flagInfoOut != "" {
		f, err := os.Create(flagInfoOut)
		if err != nil {
			return fmt.Errorf("create info file: %w", err)
		}
		defer f.Close()
		w = f
	}
	_, err = io.WriteString(w, infoFile(c.newCore().SystemInfo()))
	return err
}

// infoFile renders a libretro core info file.
func infoFile(si emucore.SystemInfo) string {
	var b strings.Builder
	field := func(key string, value any) {
		fmt.Fprintf(&b, "%s = \"%v\"\n", key, value)
	}

	field("display_name", si.CoreName)
	field("corename", si.CoreName)
	field("display_version", si.CoreVersion)
	field("supported_extensions", si.ValidExtensions())
	if si.RDBName != "" {
		field("systemname", si.RDBName)
		field("database", si.RDBName)
	}
	field("needs_fullpath", si.NeedFullPath)
	field("block_extract", si.BlockExtract())
	field("supports_no_game", false)
	field("savestate", true)
	if si.SerializationQuirks&emucore.SerializationQuirkCoreVariableSize != 0 {
		field("savestate_features", "basic")
	} else {
		field("savestate_features", "deterministic")
	}
	field("cheats", true)
	if si.Players > 0 {
		field("input_descriptors", true)
		field("players", si.Players)
	}
	return b.String()
}
