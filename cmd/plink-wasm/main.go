//go:build js && wasm

// Command plink-wasm exposes the URL cleaner to JavaScript.
//
// Build with:
//
//	GOOS=js GOARCH=wasm go build -o plink.wasm ./cmd/plink-wasm
//
// Loading the module defines a global plink object:
//
//	plink.cleanUrl(url, options)  // result object
//	plink.cleanUrlSimple(url)     // cleaned URL string
//	plink.defaultOptions()        // options object
//
// Failures come back as Error values rather than being thrown, because a
// Go callback cannot unwind the JavaScript stack.
package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/jmylchreest/plink/internal/bridge"
)

var cleaners = bridge.NewCache(16)

func main() {
	api := js.Global().Get("Object").New()
	api.Set("cleanUrl", js.FuncOf(cleanURL))
	api.Set("cleanUrlSimple", js.FuncOf(cleanURLSimple))
	api.Set("defaultOptions", js.FuncOf(defaultOptions))
	js.Global().Set("plink", api)

	select {}
}

func cleanURL(_ js.Value, args []js.Value) any {
	if len(args) == 0 || args[0].Type() != js.TypeString {
		return jsError("cleanUrl: url must be a string")
	}

	configJSON := ""
	if len(args) > 1 && args[1].Truthy() {
		configJSON = js.Global().Get("JSON").Call("stringify", args[1]).String()
	}
	c, err := cleaners.Get(configJSON)
	if err != nil {
		return jsError(err.Error())
	}
	out, err := bridge.CleanJSON(c, args[0].String())
	if err != nil {
		return jsError(err.Error())
	}
	return fromJSON(out)
}

func cleanURLSimple(_ js.Value, args []js.Value) any {
	if len(args) == 0 || args[0].Type() != js.TypeString {
		return jsError("cleanUrlSimple: url must be a string")
	}
	c, err := bridge.Default()
	if err != nil {
		return jsError(err.Error())
	}
	out, err := c.CleanString(args[0].String())
	if err != nil {
		return jsError(err.Error())
	}
	return out
}

func defaultOptions(js.Value, []js.Value) any {
	return fromJSON(bridge.DefaultOptionsJSON())
}

func fromJSON(s string) js.Value {
	if !json.Valid([]byte(s)) {
		return jsError("invalid JSON from cleaner")
	}
	return js.Global().Get("JSON").Call("parse", s)
}

func jsError(msg string) js.Value {
	return js.Global().Get("Error").New(msg)
}
