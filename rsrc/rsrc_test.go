package rsrc_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Urethramancer/m68kmac/rsrc"
)

func sampleFork() *rsrc.Fork {
	f := rsrc.NewFork()
	f.Add(&rsrc.Resource{Type: rsrc.MustType("CODE"), ID: 0, Data: []byte{0, 0, 0, 0x20}})
	f.Add(&rsrc.Resource{Type: rsrc.MustType("CODE"), ID: 1, Name: "Main", Attrs: 0x20, Data: []byte{0x4E, 0x75}})
	f.Add(&rsrc.Resource{Type: rsrc.MustType("STR "), ID: -16396, Data: []byte("\x05Hello")})
	f.Add(&rsrc.Resource{Type: rsrc.MustType("DATA"), ID: 128, Data: nil})
	return f
}

func TestTypeCodes(t *testing.T) {
	typ, err := rsrc.ParseType("CODE")
	if err != nil {
		t.Fatal(err)
	}
	if uint32(typ) != 0x434F4445 {
		t.Errorf("ParseType(CODE) = %08X", uint32(typ))
	}
	if typ.String() != "CODE" {
		t.Errorf("String() = %q", typ.String())
	}
	if b := typ.Bytes(); b != [4]byte{'C', 'O', 'D', 'E'} {
		t.Errorf("Bytes() = %v", b)
	}
	if _, err := rsrc.ParseType("TOOLONG"); err == nil {
		t.Error("ParseType accepted a seven character code")
	}
}

func TestForkEncodeParse(t *testing.T) {
	src := sampleFork()
	raw, err := src.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	got, err := rsrc.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Len() != src.Len() {
		t.Fatalf("parsed %d resources, want %d", got.Len(), src.Len())
	}
	for _, typ := range src.Types() {
		for _, id := range src.IDs(typ) {
			want, _ := src.Get(typ, id)
			r, ok := got.Get(typ, id)
			if !ok {
				t.Errorf("'%s' %d missing after parse", typ, id)
				continue
			}
			if !bytes.Equal(r.Data, want.Data) || r.Name != want.Name || r.Attrs != want.Attrs {
				t.Errorf("'%s' %d = %+v, want %+v", typ, id, r, want)
			}
		}
	}
}

func TestLookupMiss(t *testing.T) {
	f := sampleFork()
	if _, err := f.Lookup(rsrc.MustType("CODE"), 7); !errors.Is(err, rsrc.ErrNotFound) {
		t.Errorf("missing ID error = %v, want ErrNotFound", err)
	}
	if _, err := f.Lookup(rsrc.MustType("MENU"), 1); !errors.Is(err, rsrc.ErrNotFound) {
		t.Errorf("missing type error = %v, want ErrNotFound", err)
	}
	data, err := f.Lookup(rsrc.MustType("STR "), -16396)
	if err != nil || string(data) != "\x05Hello" {
		t.Errorf("negative ID lookup = %q, %v", data, err)
	}
}

func TestParseMalformed(t *testing.T) {
	raw, _ := sampleFork().Bytes()
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"ShortHeader", raw[:10]},
		{"Truncated", raw[:len(raw)-8]},
	}
	for _, tc := range tests {
		if _, err := rsrc.Parse(tc.data); !errors.Is(err, rsrc.ErrMalformedFork) {
			t.Errorf("[%s] error = %v, want ErrMalformedFork", tc.name, err)
		}
	}
}

func TestEmptyFork(t *testing.T) {
	raw, err := rsrc.NewFork().Bytes()
	if err != nil {
		t.Fatal(err)
	}
	f, err := rsrc.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != 0 {
		t.Errorf("empty fork parsed with %d resources", f.Len())
	}
}

func appleDouble(fork []byte) []byte {
	be := binary.BigEndian
	var out []byte
	out = be.AppendUint32(out, 0x00051607)
	out = be.AppendUint32(out, 0x00020000)
	out = append(out, make([]byte, 16)...)
	out = be.AppendUint16(out, 1)
	out = be.AppendUint32(out, 2)
	out = be.AppendUint32(out, uint32(len(out)+8))
	out = be.AppendUint32(out, uint32(len(fork)))
	return append(out, fork...)
}

func TestOpen(t *testing.T) {
	raw, _ := sampleFork().Bytes()
	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.rsrc")
	if err := os.WriteFile(plain, raw, 0644); err != nil {
		t.Fatal(err)
	}
	f, err := rsrc.Open(plain)
	if err != nil || f.Len() != 4 {
		t.Fatalf("Open raw fork = %v, %v", f, err)
	}

	app := filepath.Join(dir, "App")
	if err := os.WriteFile(app, []byte("data fork"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "._App"), appleDouble(raw), 0644); err != nil {
		t.Fatal(err)
	}
	f, err = rsrc.Open(app)
	if err != nil {
		t.Fatalf("Open AppleDouble sibling failed: %v", err)
	}
	if _, err := f.Lookup(rsrc.MustType("CODE"), 1); err != nil {
		t.Errorf("AppleDouble fork lookup: %v", err)
	}
}
