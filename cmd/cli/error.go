package cli

import (
	"fmt"

	"github.com/cedoor/sparse-merkle-tree/lib"
)

func ErrUnknownScriptOp(index int, op string) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidArgument, lib.MainModule, fmt.Sprintf("script operation %d: unknown op %q, expected add, update or delete", index, op))
}

func ErrScriptOp(index int, op string, err lib.ErrorI) lib.ErrorI {
	return lib.NewError(err.Code(), err.Module(), fmt.Sprintf("script operation %d (%s) failed: %s", index, op, err.Error()))
}

func ErrUnknownProofFormat(format string) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidArgument, lib.MainModule, fmt.Sprintf("unknown proof format %q, expected json or binary", format))
}
