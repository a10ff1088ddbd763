package cli

import (
	"github.com/cedoor/sparse-merkle-tree/lib"
	"github.com/cedoor/sparse-merkle-tree/lib/codec"
	"github.com/cedoor/sparse-merkle-tree/store"
)

/*
	A script is a json list of operations replayed against a fresh tree, for example:

	[
	  {"op": "add", "key": "0a", "value": "64"},
	  {"op": "update", "key": "0a", "value": "01"},
	  {"op": "delete", "key": "0a"}
	]

	Keys and values are text in the configured key encoding.
*/

const (
	scriptAdd    = "add"
	scriptUpdate = "update"
	scriptDelete = "delete"
)

// ScriptOp is a single tree mutation
type ScriptOp struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Script is an ordered list of tree mutations
type Script []ScriptOp

// NewScriptFromFile() reads a json script
func NewScriptFromFile(path string) (s Script, err lib.ErrorI) {
	bz, err := lib.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = lib.UnmarshalJSON(bz, &s)
	return
}

// Apply() executes the operations in order and stops at the first failure
func (s Script) Apply(tree *store.SMT, c codec.NodeValueCodec) lib.ErrorI {
	for i, op := range s {
		key, err := lib.ParseNodeValue(c, op.Key)
		if err != nil {
			return ErrScriptOp(i, op.Op, err)
		}
		switch op.Op {
		case scriptAdd, scriptUpdate:
			value, e := lib.ParseNodeValue(c, op.Value)
			if e != nil {
				return ErrScriptOp(i, op.Op, e)
			}
			if op.Op == scriptAdd {
				err = tree.Add(key, value)
			} else {
				err = tree.Update(key, value)
			}
		case scriptDelete:
			err = tree.Delete(key)
		default:
			return ErrUnknownScriptOp(i, op.Op)
		}
		if err != nil {
			return ErrScriptOp(i, op.Op, err)
		}
	}
	return nil
}

// TreeSummary describes a tree after a script ran
type TreeSummary struct {
	Root    lib.NodeValue `json:"root"`
	Entries int           `json:"entries"`
	Nodes   int           `json:"nodes"`
}

// buildTree() creates a tree from the config and replays the script in it
func buildTree(config lib.Config, scriptPath string, log lib.LoggerI) (*store.SMT, codec.NodeValueCodec, lib.ErrorI) {
	c, e := codec.New(config.KeyEncoding)
	if e != nil {
		return nil, nil, lib.ErrUnknownCodec(config.KeyEncoding)
	}
	script, err := NewScriptFromFile(scriptPath)
	if err != nil {
		return nil, nil, err
	}
	tree, err := store.New(config, nil, log)
	if err != nil {
		return nil, nil, err
	}
	if err = script.Apply(tree, c); err != nil {
		_ = tree.Close()
		return nil, nil, err
	}
	log.Debugf("Applied %d operations from %s", len(script), scriptPath)
	return tree, c, nil
}

// summarize() counts the entries and the nodes of the tree
func summarize(tree *store.SMT) (*TreeSummary, lib.ErrorI) {
	nodes, err := tree.Size()
	if err != nil {
		return nil, err
	}
	summary := &TreeSummary{Root: tree.Root(), Nodes: nodes}
	err = tree.Entries(func(_, _ lib.NodeValue) bool {
		summary.Entries++
		return true
	})
	return summary, err
}
