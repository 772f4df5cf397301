//go:build js && wasm
// +build js,wasm

package main

import (
	"fmt"
	"syscall/js"

	"github.com/pkg/errors"

	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorTooShort
	ErrorProcessing
)

// readChannel copies a JS Array, Float32Array or Float64Array of samples.
func readChannel(v js.Value, ch int) ([]float64, error) {
	if v.Type() != js.TypeObject {
		return nil, errors.Errorf("channel %d must be an Array or typed array", ch)
	}
	n := v.Length()
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		s := v.Index(i)
		if s.Type() != js.TypeNumber {
			return nil, errors.Errorf("channel %d sample %d is not a number", ch, i)
		}
		samples[i] = s.Float()
	}
	return samples, nil
}

// generateFingerprint(channels, sampleRate) hashes decoded PCM with the default
// parameters at the given rate. channels is an array of per-channel sample
// arrays. Returns {error: number, data: [{offset, hash}] | string}; offsets are
// exact millisecond strings as accepted by POST /api/match/hashes.
func generateFingerprint(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 2 arguments: channels, sampleRate")
	}
	channelsJS, sampleRateJS := args[0], args[1]

	if channelsJS.Type() != js.TypeObject || channelsJS.Length() == 0 {
		return makeErrorResponse(ErrorInvalidArgs, "channels must be a non-empty array of sample arrays")
	}
	if sampleRateJS.Type() != js.TypeNumber || sampleRateJS.Int() <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate must be a positive number")
	}

	channels := make([][]float64, channelsJS.Length())
	for ch := range channels {
		samples, err := readChannel(channelsJS.Index(ch), ch)
		if err != nil {
			return makeErrorResponse(ErrorInvalidArgs, err.Error())
		}
		channels[ch] = samples
	}

	params := fingerprint.DefaultParams()
	params.SampleRate = sampleRateJS.Int()
	processor, err := fingerprint.NewProcessor(params)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	hashes, err := processor.Fingerprint(channels)
	if err != nil {
		code := ErrorProcessing
		if errors.Is(err, fingerprint.ErrInvalidInput) {
			code = ErrorTooShort
		}
		return makeErrorResponse(code, fmt.Sprintf("Failed to fingerprint audio: %v", err))
	}

	data := js.Global().Get("Array").New(len(hashes))
	for i, h := range hashes {
		obj := js.Global().Get("Object").New()
		obj.Set("offset", h.Offset.String())
		obj.Set("hash", h.Hash)
		data.SetIndex(i, obj)
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	log := func(method, msg string) {
		if !console.IsUndefined() {
			console.Call(method, msg)
		}
	}

	js.Global().Set("generateFingerprint", js.FuncOf(generateFingerprint))
	log("log", "Constellation WASM: generateFingerprint registered")

	window := js.Global().Get("window")
	if window.IsUndefined() {
		log("error", "Constellation WASM: window object is undefined")
	} else {
		event := js.Global().Get("CustomEvent").New("wasmReady", js.Global().Get("Object").New())
		window.Call("dispatchEvent", event)
	}

	select {}
}
