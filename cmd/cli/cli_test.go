package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cedoor/sparse-merkle-tree/lib"
	"github.com/cedoor/sparse-merkle-tree/lib/codec"
	"github.com/cedoor/sparse-merkle-tree/lib/crypto"
	"github.com/stretchr/testify/require"
)

const (
	sixKeysRoot   = "ffe739ae359c1569f18b9c4f5af97cde6ef668395f755c0c3834d7ba79cb9b4c"
	threeKeysRoot = "6a74fc0a13e520210d5657a6cccc5661da3665f254acb04235fb0ab6cf9ea79a"
)

// sixKeysScript adds the keys 10, 3, 43, 32, 9, 23 with the value key * 10
var sixKeysScript = Script{
	{Op: scriptAdd, Key: "10", Value: "100"},
	{Op: scriptAdd, Key: "3", Value: "30"},
	{Op: scriptAdd, Key: "43", Value: "430"},
	{Op: scriptAdd, Key: "32", Value: "320"},
	{Op: scriptAdd, Key: "9", Value: "90"},
	{Op: scriptAdd, Key: "23", Value: "230"},
}

func TestRunScript(t *testing.T) {
	deletions := append(Script{}, sixKeysScript...)
	deletions = append(deletions,
		ScriptOp{Op: scriptDelete, Key: "3"},
		ScriptOp{Op: scriptDelete, Key: "32"},
		ScriptOp{Op: scriptDelete, Key: "9"},
	)
	updates := append(Script{}, sixKeysScript...)
	updates = append(updates,
		ScriptOp{Op: scriptUpdate, Key: "3", Value: "1"},
		ScriptOp{Op: scriptUpdate, Key: "3", Value: "30"},
	)
	tests := []struct {
		name     string
		detail   string
		script   Script
		expected TreeSummary
	}{
		{
			name:     "empty",
			detail:   "an empty script leaves the tree empty",
			script:   Script{},
			expected: TreeSummary{},
		},
		{
			name:     "six keys",
			detail:   "six additions",
			script:   sixKeysScript,
			expected: TreeSummary{Root: mustNodeValue(t, sixKeysRoot), Entries: 6, Nodes: 11},
		},
		{
			name:     "deletions",
			detail:   "six additions then three deletions",
			script:   deletions,
			expected: TreeSummary{Root: mustNodeValue(t, threeKeysRoot), Entries: 3, Nodes: 6},
		},
		{
			name:     "update round trip",
			detail:   "updating a value and restoring it restores the root",
			script:   updates,
			expected: TreeSummary{Root: mustNodeValue(t, sixKeysRoot), Entries: 6, Nodes: 11},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			summary, err := runScript(decimalConfig(), writeScript(t, test.script), lib.NewNullLogger())
			require.NoError(t, err, test.detail)
			require.Equal(t, test.expected, *summary, test.detail)
		})
	}
}

func TestRunScriptErrors(t *testing.T) {
	tests := []struct {
		name           string
		detail         string
		script         Script
		expectedModule lib.ErrorModule
		expectedCode   lib.ErrorCode
	}{
		{
			name:           "unknown op",
			detail:         "only add, update and delete are accepted",
			script:         Script{{Op: "upsert", Key: "1", Value: "1"}},
			expectedModule: lib.MainModule,
			expectedCode:   lib.CodeInvalidArgument,
		},
		{
			name:           "duplicate add",
			detail:         "the tree error code is preserved",
			script:         Script{{Op: scriptAdd, Key: "1", Value: "1"}, {Op: scriptAdd, Key: "1", Value: "2"}},
			expectedModule: lib.SMTModule,
			expectedCode:   lib.CodeKeyExists,
		},
		{
			name:           "missing delete",
			detail:         "deleting an absent key fails",
			script:         Script{{Op: scriptAdd, Key: "1", Value: "1"}, {Op: scriptDelete, Key: "2"}},
			expectedModule: lib.SMTModule,
			expectedCode:   lib.CodeKeyNotFound,
		},
		{
			name:           "invalid key",
			detail:         "the key is not a decimal number",
			script:         Script{{Op: scriptAdd, Key: "0x1", Value: "1"}},
			expectedModule: lib.MainModule,
			expectedCode:   lib.CodeInvalidParameter,
		},
		{
			name:           "missing value",
			detail:         "add requires a value",
			script:         Script{{Op: scriptAdd, Key: "1"}},
			expectedModule: lib.MainModule,
			expectedCode:   lib.CodeInvalidParameter,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := runScript(decimalConfig(), writeScript(t, test.script), lib.NewNullLogger())
			require.Error(t, err, test.detail)
			require.True(t, lib.IsErrorCode(err, test.expectedModule, test.expectedCode), err.Error())
		})
	}
	// malformed json
	path := filepath.Join(t.TempDir(), "script.json")
	require.NoError(t, os.WriteFile(path, []byte("[{"), 0600))
	_, err := runScript(decimalConfig(), path, lib.NewNullLogger())
	require.True(t, lib.IsErrorCode(err, lib.MainModule, lib.CodeJSONUnmarshal))
	// missing file
	_, err = runScript(decimalConfig(), filepath.Join(t.TempDir(), "missing.json"), lib.NewNullLogger())
	require.True(t, lib.IsErrorCode(err, lib.MainModule, lib.CodeReadFile))
}

func TestProveAndVerifyFiles(t *testing.T) {
	dir, script := t.TempDir(), writeScript(t, sixKeysScript)
	var paths []string
	for _, key := range []string{"43", "44", "11"} {
		for _, format := range []string{jsonFormat, binaryFormat} {
			bz, err := proveKey(decimalConfig(), script, key, format, lib.NewNullLogger())
			require.NoError(t, err)
			path := filepath.Join(dir, key+"."+format)
			require.NoError(t, os.WriteFile(path, bz, 0600))
			paths = append(paths, path)
		}
	}
	results, allValid := verifyProofFiles(crypto.SHA256, paths)
	require.True(t, allValid)
	for i, r := range results {
		require.Equal(t, paths[i], r.Path)
		require.True(t, r.Valid, r.Path)
		require.NoError(t, r.Err)
	}
	// both encodings of a proof decode to the same proof
	fromJSON, err := readProofFile(paths[0])
	require.NoError(t, err)
	fromBinary, err := readProofFile(paths[1])
	require.NoError(t, err)
	require.Equal(t, fromJSON, fromBinary)
	require.True(t, fromJSON.Membership)
	// a proof for a different hash function fails
	_, allValid = verifyProofFiles(crypto.Keccak256, paths[:1])
	require.False(t, allValid)
	// a tampered and a missing file fail without affecting the others
	tampered := filepath.Join(dir, "tampered.json")
	fromJSON.Root[0] ^= 1
	bz, err := lib.MarshalJSON(fromJSON)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(tampered, bz, 0600))
	missing := filepath.Join(dir, "missing.json")
	results, allValid = verifyProofFiles(crypto.SHA256, []string{paths[0], tampered, missing})
	require.False(t, allValid)
	require.True(t, results[0].Valid)
	require.False(t, results[1].Valid)
	require.NoError(t, results[1].Err)
	require.False(t, results[2].Valid)
	require.Error(t, results[2].Err)
}

func TestProveKeyErrors(t *testing.T) {
	script := writeScript(t, sixKeysScript)
	_, err := proveKey(decimalConfig(), script, "43", "yaml", lib.NewNullLogger())
	require.True(t, lib.IsErrorCode(err, lib.MainModule, lib.CodeInvalidArgument))
	_, err = proveKey(decimalConfig(), script, "-1", jsonFormat, lib.NewNullLogger())
	require.True(t, lib.IsErrorCode(err, lib.MainModule, lib.CodeInvalidParameter))
	config := decimalConfig()
	config.HashFunction = "md5"
	_, err = proveKey(config, script, "43", jsonFormat, lib.NewNullLogger())
	require.True(t, lib.IsErrorCode(err, lib.MainModule, lib.CodeUnknownHasher))
}

func TestInitializeDataDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	c := InitializeDataDirectory(dir, lib.NewNullLogger())
	expected := lib.DefaultConfig()
	expected.DataDirPath = dir
	require.Equal(t, expected, c)
	require.FileExists(t, filepath.Join(dir, lib.ConfigFilePath))
	// an existing config file is loaded, not overwritten
	c.HashFunction = "blake3"
	require.NoError(t, c.WriteToFile(filepath.Join(dir, lib.ConfigFilePath)))
	require.Equal(t, "blake3", InitializeDataDirectory(dir, lib.NewNullLogger()).HashFunction)
}

func decimalConfig() lib.Config {
	config := lib.DefaultConfig()
	config.KeyEncoding = "decimal"
	return config
}

// writeScript() saves the script to a temporary file and returns its path
func writeScript(t *testing.T, script Script) string {
	path := filepath.Join(t.TempDir(), "script.json")
	bz, err := lib.MarshalJSON(script)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, bz, 0600))
	return path
}

func mustNodeValue(t *testing.T, s string) lib.NodeValue {
	n, err := lib.ParseNodeValue(codec.Hex{}, s)
	require.NoError(t, err)
	return n
}
