// Package main provides the C FFI exports of plink.
//
// Build with:
//
//	CGO_ENABLED=1 go build -buildmode=c-shared -o libplink.so ./pkg/ffi/
//
// All inputs and outputs are C strings. Structured data is JSON. Every
// function returning a PlinkResult transfers ownership to the caller, who
// must release it with plink_result_free.
package main

// #include "plink.h"
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/jmylchreest/plink/internal/bridge"
)

// === Cleaner ===

//export plink_cleaner_new
func plink_cleaner_new(configJSON *C.char) C.int {
	cfg := ""
	if configJSON != nil {
		cfg = C.GoString(configJSON)
	}
	return C.int(newHandle(cfg))
}

// plink_last_error returns why the last plink_cleaner_new call returned -1.
// data is empty when it succeeded.
//
//export plink_last_error
func plink_last_error() C.PlinkResult {
	return makeResult(lastError.get())
}

//export plink_clean
func plink_clean(handle C.int, rawURL *C.char) C.PlinkResult {
	c, ok := handleManager.get(int(handle))
	if !ok {
		return makeError(fmt.Sprintf("invalid cleaner handle: %d", handle))
	}
	out, err := bridge.CleanJSON(c, C.GoString(rawURL))
	if err != nil {
		return makeError(err.Error())
	}
	return makeResult(out)
}

//export plink_clean_simple
func plink_clean_simple(rawURL *C.char) C.PlinkResult {
	c, err := bridge.Default()
	if err != nil {
		return makeError(err.Error())
	}
	out, err := c.CleanString(C.GoString(rawURL))
	if err != nil {
		return makeError(err.Error())
	}
	return makeResult(out)
}

//export plink_cleaner_free
func plink_cleaner_free(handle C.int) {
	handleManager.remove(int(handle))
}

// === Memory Management ===

//export plink_result_free
func plink_result_free(result C.PlinkResult) {
	if result.data != nil {
		C.free(unsafe.Pointer(result.data))
	}
	if result.error != nil {
		C.free(unsafe.Pointer(result.error))
	}
}

// helpers

func makeResult(data string) C.PlinkResult {
	return C.PlinkResult{
		data:  C.CString(data),
		len:   C.int(len(data)),
		error: nil,
	}
}

func makeError(msg string) C.PlinkResult {
	return C.PlinkResult{
		data:  nil,
		len:   0,
		error: C.CString(msg),
	}
}

// main is required for c-shared build mode but should not be called.
func main() {}
