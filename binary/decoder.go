package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/sile/nowasm/wasm"
)

var (
	magic   = [4]byte{0x00, 0x61, 0x73, 0x6d}
	version = [4]byte{0x01, 0x00, 0x00, 0x00}
)

// DecodeModule parses a WebAssembly 1.0 binary module, returning the
// same static image regardless of how many times the result is later
// instantiated. Grounded on the teacher's binary/decoder.go DecodeModule
// (header check, then a section loop dispatching on id with a running
// "highest section seen so far" order check).
func DecodeModule(r io.Reader) (*wasm.Module, error) {
	d := &reader{r: r}

	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w", wasm.ErrUnexpectedEOF)
	}
	if !bytes.Equal(hdr[:4], magic[:]) {
		return nil, wasm.ErrBadMagic
	}
	if !bytes.Equal(hdr[4:], version[:]) {
		return nil, wasm.ErrBadVersion
	}

	m := &Module{Module: &wasm.Module{CustomSections: map[string][]byte{}}}

	lastID := wasm.SectionIDCustom
	seen := map[wasm.SectionID]bool{}
	for {
		var idBuf [1]byte
		n, err := io.ReadFull(r, idBuf[:])
		if err != nil {
			if err == io.EOF && n == 0 {
				break // clean end of module: no more sections.
			}
			return nil, fmt.Errorf("%w", wasm.ErrUnexpectedEOF)
		}
		id := wasm.SectionID(idBuf[0])
		size, err := d.u32()
		if err != nil {
			return nil, err
		}
		body, err := d.sub(size)
		if err != nil {
			return nil, err
		}
		if id != wasm.SectionIDCustom {
			if seen[id] {
				return nil, wasm.ErrSectionOrder
			}
			if id < lastID {
				return nil, wasm.ErrSectionOrder
			}
			seen[id] = true
			lastID = id
		}
		if err := decodeSection(m, id, body); err != nil {
			return nil, err
		}
	}

	if err := m.finalize(); err != nil {
		return nil, err
	}
	return m.Module, nil
}

// Module wraps wasm.Module with the extra per-section staging state used
// only while decoding: whether the function and code sections were seen,
// for finalize's check that their entry counts match.
type Module struct {
	*wasm.Module
	funcSectionSeen bool
	codeSectionSeen bool
}

func decodeSection(m *Module, id wasm.SectionID, body *reader) error {
	switch id {
	case wasm.SectionIDCustom:
		name, err := body.name()
		if err != nil {
			return err
		}
		rest, err := readAll(body)
		if err != nil {
			return err
		}
		if _, dup := m.CustomSections[name]; dup {
			return fmt.Errorf("wasm: duplicate custom section %q", name)
		}
		m.CustomSections[name] = rest
	case wasm.SectionIDType:
		types, err := vec(body, decodeFunctionType)
		if err != nil {
			return err
		}
		m.Types = types
	case wasm.SectionIDImport:
		imports, err := vec(body, decodeImport)
		if err != nil {
			return err
		}
		m.Imports = imports
	case wasm.SectionIDFunction:
		funcs, err := vec(body, func(d *reader) (uint32, error) { return d.u32() })
		if err != nil {
			return err
		}
		m.Funcs = funcs
		m.funcSectionSeen = true
	case wasm.SectionIDTable:
		tables, err := vec(body, decodeTableType)
		if err != nil {
			return err
		}
		if len(tables)+m.NumImportedTables() > 1 {
			return wasm.ErrTooManyTables
		}
		m.Tables = tables
	case wasm.SectionIDMemory:
		mems, err := vec(body, decodeMemoryType)
		if err != nil {
			return err
		}
		if len(mems)+m.NumImportedMemories() > 1 {
			return wasm.ErrTooManyMemories
		}
		m.Memories = mems
	case wasm.SectionIDGlobal:
		globals, err := vec(body, decodeGlobal)
		if err != nil {
			return err
		}
		m.Globals = globals
	case wasm.SectionIDExport:
		exports, err := vec(body, decodeExport)
		if err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, e := range exports {
			if seen[e.Name] {
				return wasm.ErrDuplicateExport
			}
			seen[e.Name] = true
		}
		m.Exports = exports
	case wasm.SectionIDStart:
		idx, err := body.u32()
		if err != nil {
			return err
		}
		m.Start = &idx
	case wasm.SectionIDElement:
		elems, err := vec(body, decodeElement)
		if err != nil {
			return err
		}
		m.Elements = elems
	case wasm.SectionIDCode:
		codes, err := vec(body, decodeCode)
		if err != nil {
			return err
		}
		m.Codes = codes
		m.codeSectionSeen = true
	case wasm.SectionIDData:
		data, err := vec(body, decodeData)
		if err != nil {
			return err
		}
		m.Data = data
	default:
		return wasm.ErrInvalidSectionID
	}
	return nil
}

// finalize runs the cross-section checks that can only happen once every
// section has been seen.
func (m *Module) finalize() error {
	if m.funcSectionSeen != m.codeSectionSeen || len(m.Funcs) != len(m.Codes) {
		return wasm.ErrFuncCodeMismatch
	}
	return nil
}
