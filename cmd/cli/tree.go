package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/cedoor/sparse-merkle-tree/lib"
	"github.com/cedoor/sparse-merkle-tree/lib/crypto"
	"github.com/cedoor/sparse-merkle-tree/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	jsonFormat   = "json"
	binaryFormat = "binary"
)

var (
	proofFormat, proofOut = "", ""
)

func init() {
	proveCmd.Flags().StringVar(&proofFormat, "format", jsonFormat, "proof encoding: json or binary")
	proveCmd.Flags().StringVar(&proofOut, "out", "", "write the proof to this file instead of stdout")
}

var (
	runCmd = &cobra.Command{
		Use:   "run <script>",
		Short: "replay a json script of add, update and delete operations and print the resulting root",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(runScript(config, args[0], l))
		},
	}

	proveCmd = &cobra.Command{
		Use:   "prove <script> <key>",
		Short: "replay a script and create a proof for the key",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			bz, err := proveKey(config, args[0], args[1], proofFormat, l)
			if err != nil {
				l.Fatal(err.Error())
			}
			if proofOut != "" {
				writeToConsole(fmt.Sprintf("Proof written to %s", proofOut), lib.WriteFile(proofOut, bz))
				return
			}
			if _, e := os.Stdout.Write(bz); e != nil {
				l.Fatal(e.Error())
			}
		},
	}

	verifyCmd = &cobra.Command{
		Use:   "verify <proof-file>...",
		Short: "verify proof files in parallel with the configured hash function",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			hash, e := crypto.NewHashFunc(config.HashFunction)
			if e != nil {
				l.Fatal(lib.ErrUnknownHasher(config.HashFunction).Error())
			}
			results, allValid := verifyProofFiles(hash, args)
			for _, r := range results {
				fmt.Printf("%s: %t\n", r.Path, r.Valid)
			}
			if !allValid {
				os.Exit(1)
			}
		},
	}
)

// runScript() replays the script in a fresh tree and summarizes it
func runScript(config lib.Config, scriptPath string, log lib.LoggerI) (*TreeSummary, lib.ErrorI) {
	tree, _, err := buildTree(config, scriptPath, log)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tree.Close() }()
	return summarize(tree)
}

// proveKey() replays the script and encodes a proof for the key in the requested format
func proveKey(config lib.Config, scriptPath, keyText, format string, log lib.LoggerI) ([]byte, lib.ErrorI) {
	if format != jsonFormat && format != binaryFormat {
		return nil, ErrUnknownProofFormat(format)
	}
	tree, c, err := buildTree(config, scriptPath, log)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tree.Close() }()
	key, err := lib.ParseNodeValue(c, keyText)
	if err != nil {
		return nil, err
	}
	proof, err := tree.CreateProof(key)
	if err != nil {
		return nil, err
	}
	if format == binaryFormat {
		bz, e := proof.MarshalBinary()
		if e != nil {
			return nil, lib.ErrMarshal(e)
		}
		return bz, nil
	}
	return lib.MarshalJSONIndent(proof)
}

// VerifyResult is the outcome of verifying one proof file
type VerifyResult struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Err   error  `json:"-"`
}

// verifyProofFiles() verifies every file concurrently; results keep the order of the paths
func verifyProofFiles(hash crypto.HashFunc, paths []string) (results []VerifyResult, allValid bool) {
	results = make([]VerifyResult, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i] = VerifyResult{Path: path}
			proof, err := readProofFile(path)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Valid = store.VerifyProof(hash, proof)
			return nil
		})
	}
	_ = g.Wait()
	allValid = true
	for _, r := range results {
		allValid = allValid && r.Valid
	}
	return
}

// readProofFile() decodes a proof file written by 'prove' in either format
func readProofFile(path string) (*lib.Proof, lib.ErrorI) {
	bz, err := lib.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// a json proof is an object, a binary proof starts with the entry field tag
	if trimmed := bytes.TrimSpace(bz); len(trimmed) != 0 && trimmed[0] == '{' {
		proof := new(lib.Proof)
		if err = lib.UnmarshalJSON(trimmed, proof); err != nil {
			return nil, err
		}
		return proof, nil
	}
	return lib.NewProofFromBytes(bz)
}
