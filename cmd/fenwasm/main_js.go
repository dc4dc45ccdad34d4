//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/park285/boardfen/pkg/fendto"
)

func main() {
	getFen := js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) == 0 || args[0].Type() != js.TypeString {
			return result{Error: "getFen expects a JSON string", Code: fendto.CodeMalformedRequest}.toMap()
		}
		return getFEN(args[0].String()).toMap()
	})
	js.Global().Set("boardfen", js.ValueOf(map[string]any{"getFen": getFen}))
	select {}
}
