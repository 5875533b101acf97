package main

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/informatter/zinclang/prover/fake"
)

// backend is the only prover.Backend this repo ships (see DESIGN.md): a
// documented non-cryptographic stand-in, never a real SNARK.
var backend fake.Backend

func containerStem(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

func gobWriteFile(path string, v any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func gobReadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

var (
	setupParamsOut string
	setupVkOut     string
)

var setupCmd = &cobra.Command{
	Use:   "setup <program.znb>",
	Short: "Generate prover parameters and a verifying key for a container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadContainer(args[0])
		if err != nil {
			return err
		}
		params, err := backend.Setup(p)
		if err != nil {
			return fmt.Errorf("setup: %w", err)
		}
		fp := params.(fake.Parameters)

		stem := containerStem(args[0])
		paramsOut, vkOut := setupParamsOut, setupVkOut
		if paramsOut == "" {
			paramsOut = stem + ".params"
		}
		if vkOut == "" {
			vkOut = stem + ".vk"
		}
		if err := gobWriteFile(paramsOut, fp); err != nil {
			return err
		}
		if err := gobWriteFile(vkOut, fp.VerifyingKey()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", paramsOut, vkOut)
		return nil
	},
}

var (
	proveParamsIn string
	proveOut      string
)

var proveCmd = &cobra.Command{
	Use:   "prove <program.znb> <witness.json>",
	Short: "Run a container under its prover parameters, producing output and a proof",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadContainer(args[0])
		if err != nil {
			return err
		}

		paramsIn := proveParamsIn
		if paramsIn == "" {
			paramsIn = containerStem(args[0]) + ".params"
		}
		var params fake.Parameters
		if err := gobReadFile(paramsIn, &params); err != nil {
			return err
		}

		input, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("reading witness: %w", err)
		}

		output, proof, err := backend.Prove(p, params, input)
		if err != nil {
			return fmt.Errorf("prove: %w", err)
		}

		proofOut := proveOut
		if proofOut == "" {
			proofOut = containerStem(args[0]) + ".proof"
		}
		if err := gobWriteFile(proofOut, proof.(fake.Proof)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "output: %s\nwrote %s\n", string(output), proofOut)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <verifying-key> <proof> <output.json>",
	Short: "Check a proof attests to output under a verifying key",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var vk fake.VerifyingKey
		if err := gobReadFile(args[0], &vk); err != nil {
			return err
		}
		var proof fake.Proof
		if err := gobReadFile(args[1], &proof); err != nil {
			return err
		}
		output, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("reading output: %w", err)
		}

		ok, err := backend.Verify(vk, proof, output)
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		if ok {
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "invalid")
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	setupCmd.Flags().StringVar(&setupParamsOut, "params", "", "parameters output path (default: <program>.params)")
	setupCmd.Flags().StringVar(&setupVkOut, "vk", "", "verifying key output path (default: <program>.vk)")
	proveCmd.Flags().StringVar(&proveParamsIn, "params", "", "parameters input path (default: <program>.params)")
	proveCmd.Flags().StringVar(&proveOut, "proof", "", "proof output path (default: <program>.proof)")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(proveCmd)
	rootCmd.AddCommand(verifyCmd)
}
