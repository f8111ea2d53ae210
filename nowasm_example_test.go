package nowasm

import (
	"bytes"
	"fmt"

	"github.com/sile/nowasm/wasm"
)

// ExampleDecode mirrors original_source/examples/decode.rs and inspect.rs:
// read the binary module and report its static shape before ever
// instantiating it.
func ExampleDecode() {
	m, err := Decode(bytes.NewReader(addModuleBytes()))
	if err != nil {
		fmt.Println("decode failed:", err)
		return
	}
	fmt.Println("types:", len(m.Types))
	fmt.Println("functions:", len(m.Funcs))
	fmt.Println("exports:", len(m.Exports))
	// Output:
	// types: 1
	// functions: 1
	// exports: 1
}

// ExampleInstance_Invoke mirrors original_source/examples/call.rs: decode,
// instantiate against a resolver with no imports to satisfy, then invoke an
// export by name with i32 arguments and print the result.
func ExampleInstance_Invoke() {
	m, err := Decode(bytes.NewReader(addModuleBytes()))
	if err != nil {
		fmt.Println("decode failed:", err)
		return
	}
	inst, err := Instantiate(m, emptyResolver{})
	if err != nil {
		fmt.Println("instantiate failed:", err)
		return
	}
	results, err := inst.Invoke("add", ValI32(40), ValI32(2))
	if err != nil {
		fmt.Println("invoke failed:", err)
		return
	}
	fmt.Println("=>", results[0].I32())
	// Output:
	// => 42
}

// printResolver resolves the single env.print host import that
// helloModuleBytes expects, the same shape as original_source's
// examples/call_hello.rs and examples/call.rs Print host function: read a
// (ptr, len) pair out of the caller's memory and print it as a UTF-8
// string.
type printResolver struct{ fn *wasm.FunctionInstance }

func (r printResolver) ResolveFunc(module, name string) (*wasm.FunctionInstance, bool) {
	if module == "env" && name == "print" {
		return r.fn, true
	}
	return nil, false
}
func (printResolver) ResolveTable(string, string) (*wasm.TableInstance, bool)   { return nil, false }
func (printResolver) ResolveMemory(string, string) (*wasm.MemoryInstance, bool) { return nil, false }
func (printResolver) ResolveGlobal(string, string) (*wasm.GlobalInstance, bool) { return nil, false }

// helloModuleBytes declares one page of memory seeded with "hi" via a data
// segment, imports env.print(i32 ptr, i32 len), and exports hello(), which
// calls the import with the segment's address and length.
func helloModuleBytes() []byte {
	typeSec := section(wasm.SectionIDType, concat(
		u32leb(2),
		[]byte{0x60}, u32leb(2), []byte{0x7f, 0x7f}, u32leb(0), // (i32, i32) -> ()
		[]byte{0x60}, u32leb(0), u32leb(0), // () -> ()
	))
	importSec := section(wasm.SectionIDImport, concat(
		u32leb(1),
		u32leb(3), []byte("env"),
		u32leb(5), []byte("print"),
		[]byte{byte(wasm.ImportKindFunc)}, u32leb(0),
	))
	funcSec := section(wasm.SectionIDFunction, concat(u32leb(1), u32leb(1)))
	memSec := section(wasm.SectionIDMemory, concat(u32leb(1), []byte{0x00}, u32leb(1)))
	exportSec := section(wasm.SectionIDExport, concat(
		u32leb(1),
		u32leb(5), []byte("hello"),
		[]byte{byte(wasm.ExportKindFunc)}, u32leb(1), // index 1: first module-defined func (0 is the import)
	))
	dataSec := section(wasm.SectionIDData, concat(
		u32leb(1),
		u32leb(0), []byte{0x41}, i32leb(0), []byte{0x0b},
		u32leb(2), []byte("hi"),
	))
	body := concat(
		[]byte{0x41}, i32leb(0), // i32.const 0 (ptr)
		[]byte{0x41}, i32leb(2), // i32.const 2 (len)
		[]byte{0x10}, u32leb(0), // call 0 (the import)
		[]byte{0x0b},
	)
	codeEntry := concat(u32leb(0), body)
	codeSec := section(wasm.SectionIDCode, concat(u32leb(1), u32leb(uint32(len(codeEntry))), codeEntry))

	return concat(header(), typeSec, importSec, funcSec, memSec, exportSec, codeSec, dataSec)
}

// ExampleInstance_Invoke_hostImport mirrors original_source/examples/
// call_hello.rs and hello.rs: a module that calls back into a host
// function to print a string it holds in its own linear memory.
func ExampleInstance_Invoke_hostImport() {
	printFn, err := NewHostFunction(func(cc *CallContext, ptr, length int32) {
		mem := cc.Memory().Data
		fmt.Print(string(mem[ptr : ptr+length]))
	})
	if err != nil {
		fmt.Println("binding host function failed:", err)
		return
	}

	m, err := Decode(bytes.NewReader(helloModuleBytes()))
	if err != nil {
		fmt.Println("decode failed:", err)
		return
	}
	inst, err := Instantiate(m, printResolver{fn: &wasm.FunctionInstance{
		Type: wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}},
		Host: printFn,
	}})
	if err != nil {
		fmt.Println("instantiate failed:", err)
		return
	}
	if _, err := inst.Invoke("hello"); err != nil {
		fmt.Println("invoke failed:", err)
		return
	}
	// Output:
	// hi
}
