package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user-none/retrobackend/internal/headless"
	"github.com/user-none/retrobackend/internal/retro"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List a core's options",
	Long: `Lists the variables a core registers with the frontend, including the
adapter's own region option, with configured defaults applied.`,
	Args: cobra.NoArgs,
	RunE: runOptions,
}

func runOptions(cmd *cobra.Command, args []string) error {
	c, err := lookupCore()
	if err != nil {
		return err
	}

	host := headless.New()
	h := retro.New(c.newCore(), c.mapping)
	h.SetEnvironment(host)
	h.Init()

	vars := h.Variables()
	if len(vars) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No options.")
		return nil
	}

	maxKeyLen := 3 // "Key" header
	for _, v := range vars {
		maxKeyLen = max(maxKeyLen, len(v.Key))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  %-*s  %-10s  %s\n", maxKeyLen, "Key", "Default", "Values")
	fmt.Fprintf(out, "  %-*s  %-10s  %s\n", maxKeyLen, "---", "-------", "------")
	for _, v := range vars {
		fmt.Fprintf(out, "  %-*s  %-10s  %s\n", maxKeyLen, v.Key, v.Default, strings.Join(v.Values, "|"))
	}
	return nil
}
