package lib

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// MarshalJSON() is a wrapper over json.Marshal that returns an ErrorI
func MarshalJSON(message any) ([]byte, ErrorI) {
	bz, err := json.Marshal(message)
	if err != nil {
		return nil, ErrJSONMarshal(err)
	}
	return bz, nil
}

// MarshalJSONIndent() is a wrapper over json.MarshalIndent using two space indentation
func MarshalJSONIndent(message any) ([]byte, ErrorI) {
	bz, err := json.MarshalIndent(message, "", "  ")
	if err != nil {
		return nil, ErrJSONMarshal(err)
	}
	return bz, nil
}

// MarshalJSONIndentString() returns the indented json as a string
func MarshalJSONIndentString(message any) (string, ErrorI) {
	bz, err := MarshalJSONIndent(message)
	return string(bz), err
}

// UnmarshalJSON() is a wrapper over json.Unmarshal that returns an ErrorI
func UnmarshalJSON(bz []byte, ptr any) ErrorI {
	if err := json.Unmarshal(bz, ptr); err != nil {
		return ErrJSONUnmarshal(err)
	}
	return nil
}

// NewJSONFromFile() reads a json file from the data directory into ptr
func NewJSONFromFile(ptr any, dataDirPath, filePath string) ErrorI {
	bz, err := os.ReadFile(filepath.Join(dataDirPath, filePath))
	if err != nil {
		return ErrReadFile(err)
	}
	return UnmarshalJSON(bz, ptr)
}

// SaveJSONToFile() writes the indented json of j to a file in the data directory
func SaveJSONToFile(j any, dataDirPath, filePath string) (err ErrorI) {
	bz, err := MarshalJSONIndent(j)
	if err != nil {
		return
	}
	if e := os.WriteFile(filepath.Join(dataDirPath, filePath), bz, os.ModePerm); e != nil {
		return ErrWriteFile(e)
	}
	return
}

// ReadFile() is a wrapper over os.ReadFile that returns an ErrorI
func ReadFile(path string) ([]byte, ErrorI) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrReadFile(err)
	}
	return bz, nil
}

// WriteFile() is a wrapper over os.WriteFile that returns an ErrorI
func WriteFile(path string, bz []byte) ErrorI {
	if err := os.WriteFile(path, bz, os.ModePerm); err != nil {
		return ErrWriteFile(err)
	}
	return nil
}

// CatchPanic() logs a recovered panic instead of crashing the routine
func CatchPanic(l LoggerI) {
	if r := recover(); r != nil {
		l.Errorf("recovered from panic: %v", r)
	}
}
