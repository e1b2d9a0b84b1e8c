package engine_test

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/soundplug/soundplug/engine"
)

// sf2Bytes builds a minimal in-memory SF2 file: a RIFF sfbk form with an
// INFO list carrying the bank name and a pdta list carrying the preset
// headers plus the EOP terminal record.
func sf2Bytes(name string, presets []engine.Preset) []byte {
	var info bytes.Buffer
	info.WriteString("INFO")
	writeSubchunk(&info, "INAM", append([]byte(name), 0))

	var phdr bytes.Buffer
	for _, p := range presets {
		writePhdrRecord(&phdr, p.Name, p.Bank, p.Program)
	}
	writePhdrRecord(&phdr, "EOP", 0, 0)
	var pdta bytes.Buffer
	pdta.WriteString("pdta")
	writeSubchunk(&pdta, "phdr", phdr.Bytes())

	var body bytes.Buffer
	body.WriteString("sfbk")
	writeSubchunk(&body, "LIST", info.Bytes())
	writeSubchunk(&body, "junk", []byte{1, 2, 3, 4}) // unknown chunks are skipped
	writeSubchunk(&body, "LIST", pdta.Bytes())

	var file bytes.Buffer
	writeSubchunk(&file, "RIFF", body.Bytes())
	return file.Bytes()
}

func writeSubchunk(w *bytes.Buffer, id string, body []byte) {
	w.WriteString(id)
	binary.Write(w, binary.LittleEndian, uint32(len(body)))
	w.Write(body)
	if len(body)%2 != 0 {
		w.WriteByte(0)
	}
}

func writePhdrRecord(w *bytes.Buffer, name string, bank, program int) {
	var rec [20]byte
	copy(rec[:], name)
	w.Write(rec[:])
	binary.Write(w, binary.LittleEndian, uint16(program))
	binary.Write(w, binary.LittleEndian, uint16(bank))
	binary.Write(w, binary.LittleEndian, uint16(0)) // bag index
	binary.Write(w, binary.LittleEndian, uint32(0)) // library
	binary.Write(w, binary.LittleEndian, uint32(0)) // genre
	binary.Write(w, binary.LittleEndian, uint32(0)) // morphology
}

func TestReadSoundFont(t *testing.T) {
	presets := []engine.Preset{
		{Name: "Grand Piano", Bank: 0, Program: 0},
		{Name: "Strings", Bank: 0, Program: 48},
		{Name: "Standard Kit", Bank: 128, Program: 0},
	}
	sf, err := engine.ReadSoundFont(bytes.NewReader(sf2Bytes("Test Bank", presets)))
	if err != nil {
		t.Fatalf("ReadSoundFont failed: %v", err)
	}
	if sf.Name != "Test Bank" {
		t.Fatalf("bank name is %q, expected %q", sf.Name, "Test Bank")
	}
	if !reflect.DeepEqual(sf.Presets, presets) {
		t.Fatalf("presets are %v, expected %v", sf.Presets, presets)
	}
}

func TestReadSoundFontRejectsForeignFiles(t *testing.T) {
	_, err := engine.ReadSoundFont(bytes.NewReader([]byte("RIFF\x04\x00\x00\x00WAVE")))
	if err == nil {
		t.Fatalf("a RIFF form that is not sfbk should be rejected")
	}
	_, err = engine.ReadSoundFont(bytes.NewReader([]byte("not a riff file at all")))
	if err == nil {
		t.Fatalf("a non-RIFF stream should be rejected")
	}
}

func TestReadSoundFontRejectsBrokenPhdr(t *testing.T) {
	var phdr bytes.Buffer
	phdr.Write(make([]byte, 13)) // not a multiple of the record size
	var pdta bytes.Buffer
	pdta.WriteString("pdta")
	writeSubchunk(&pdta, "phdr", phdr.Bytes())
	var body bytes.Buffer
	body.WriteString("sfbk")
	writeSubchunk(&body, "LIST", pdta.Bytes())
	var file bytes.Buffer
	writeSubchunk(&file, "RIFF", body.Bytes())

	_, err := engine.ReadSoundFont(bytes.NewReader(file.Bytes()))
	if err == nil {
		t.Fatalf("a phdr chunk of 13 bytes should be rejected")
	}
}

func TestLoadSoundFontMissingFile(t *testing.T) {
	if _, err := engine.LoadSoundFont("does-not-exist.sf2"); err == nil {
		t.Fatalf("loading a missing file should fail")
	}
}
