package lib

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

type ErrorI interface {
	Code() ErrorCode     // Returns the error code
	Module() ErrorModule // Returns the error module
	error                // Implements the built-in error interface
}

var _ ErrorI = &Error{} // Ensures *Error implements ErrorI

type ErrorCode uint32 // Defines a type for error codes

type ErrorModule string // Defines a type for error modules

type Error struct {
	ECode   ErrorCode   `json:"code"`   // Error code
	EModule ErrorModule `json:"module"` // Error module
	Msg     string      `json:"msg"`    // Error message
}

// NewError() constructs a new Error instance
func NewError(code ErrorCode, module ErrorModule, msg string) *Error {
	return &Error{ECode: code, EModule: module, Msg: msg}
}

// Code() returns the associated error code
func (p *Error) Code() ErrorCode { return p.ECode }

// Module() returns module field
func (p *Error) Module() ErrorModule { return p.EModule }

// String() calls Error()
func (p *Error) String() string { return p.Error() }

// Error() returns a formatted string including module, code and message
func (p *Error) Error() string {
	return fmt.Sprintf("\nModule:  %s\nCode:    %d\nMessage: %s", p.EModule, p.ECode, p.Msg)
}

// Is() allows errors.Is to match two errors that share a module and a code
func (p *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return p.ECode == t.ECode && p.EModule == t.EModule
}

// IsErrorCode() returns true if err carries the code and module passed
func IsErrorCode(err error, module ErrorModule, code ErrorCode) bool {
	var e ErrorI
	if !errors.As(err, &e) {
		return false
	}
	return e.Module() == module && e.Code() == code
}

// ErrorFromJSON() rebuilds an Error from its json representation, used by remote callers
func ErrorFromJSON(bz []byte) (*Error, bool) {
	e := new(Error)
	if err := json.Unmarshal(bz, e); err != nil || e.EModule == "" {
		return nil, false
	}
	return e, true
}

const (
	NoCode ErrorCode = math.MaxUint32

	// Main Module
	MainModule ErrorModule = "main"

	// Main Module Error Codes
	CodeJSONMarshal       ErrorCode = 1
	CodeJSONUnmarshal     ErrorCode = 2
	CodeUnmarshal         ErrorCode = 3
	CodeMarshal           ErrorCode = 4
	CodeWriteFile         ErrorCode = 5
	CodeReadFile          ErrorCode = 6
	CodeInvalidArgument   ErrorCode = 7
	CodeInvalidParameter  ErrorCode = 8
	CodeUnknownHasher     ErrorCode = 9
	CodeUnknownCodec      ErrorCode = 10
	CodeNilProof          ErrorCode = 11
	CodeUnmarshalProof    ErrorCode = 12
	CodeInvalidNodeRecord ErrorCode = 13

	// SMT Module
	SMTModule ErrorModule = "smt"

	// SMT Module Error Codes
	CodeConfiguration     ErrorCode = 1
	CodeKeyExists         ErrorCode = 2
	CodeKeyNotFound       ErrorCode = 3
	CodeInvalidMerkleTree ErrorCode = 4

	// Storage Module
	StorageModule        ErrorModule = "store"
	CodeOpenDB           ErrorCode   = 1
	CodeCloseDB          ErrorCode   = 2
	CodeStoreSet         ErrorCode   = 3
	CodeStoreGet         ErrorCode   = 4
	CodeStoreDelete      ErrorCode   = 5
	CodeCommitDB         ErrorCode   = 6
	CodeStoreIterate     ErrorCode   = 7
	CodeNonEmptyStore    ErrorCode   = 8
	CodeUnknownBackend   ErrorCode   = 9
	CodeNewCache         ErrorCode   = 10
	CodeMissingNodeEntry ErrorCode   = 11

	RPCModule          ErrorModule = "rpc"
	CodeRPCTimeout     ErrorCode   = 1
	CodeInvalidParams  ErrorCode   = 2
	CodePostRequest    ErrorCode   = 3
	CodeGetRequest     ErrorCode   = 4
	CodeHttpStatus     ErrorCode   = 5
	CodeReadBody       ErrorCode   = 6
	CodeServerShutdown ErrorCode   = 7
)

// error implementations below for the `lib` package
func newLogError(err error) ErrorI {
	return NewError(NoCode, MainModule, err.Error())
}

func ErrUnmarshal(err error) ErrorI {
	return NewError(CodeUnmarshal, MainModule, fmt.Sprintf("unmarshal() failed with err: %s", err.Error()))
}

func ErrMarshal(err error) ErrorI {
	return NewError(CodeMarshal, MainModule, fmt.Sprintf("marshal() failed with err: %s", err.Error()))
}

func ErrJSONUnmarshal(err error) ErrorI {
	return NewError(CodeJSONUnmarshal, MainModule, fmt.Sprintf("json.unmarshal() failed with err: %s", err.Error()))
}

func ErrJSONMarshal(err error) ErrorI {
	return NewError(CodeJSONMarshal, MainModule, fmt.Sprintf("json.marshal() failed with err: %s", err.Error()))
}

func ErrWriteFile(err error) ErrorI {
	return NewError(CodeWriteFile, MainModule, fmt.Sprintf("os.WriteFile() failed with err: %s", err.Error()))
}

func ErrReadFile(err error) ErrorI {
	return NewError(CodeReadFile, MainModule, fmt.Sprintf("os.ReadFile() failed with err: %s", err.Error()))
}

func ErrInvalidArgument() ErrorI {
	return NewError(CodeInvalidArgument, MainModule, "the argument is invalid")
}

func ErrInvalidParameter(value string, err error) ErrorI {
	return NewError(CodeInvalidParameter, MainModule, fmt.Sprintf("value %q is not a valid node value: %s", value, err.Error()))
}

func ErrUnknownHasher(name string) ErrorI {
	return NewError(CodeUnknownHasher, MainModule, fmt.Sprintf("hash function %q is not supported", name))
}

func ErrUnknownCodec(name string) ErrorI {
	return NewError(CodeUnknownCodec, MainModule, fmt.Sprintf("key encoding %q is not supported", name))
}

func ErrNilProof() ErrorI {
	return NewError(CodeNilProof, MainModule, "proof is nil")
}

func ErrUnmarshalProof(msg string) ErrorI {
	return NewError(CodeUnmarshalProof, MainModule, fmt.Sprintf("unable to decode proof: %s", msg))
}

func ErrInvalidNodeRecord(size int) ErrorI {
	return NewError(CodeInvalidNodeRecord, MainModule, fmt.Sprintf("node record of %d bytes is malformed", size))
}
