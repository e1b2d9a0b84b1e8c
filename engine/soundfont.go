package engine

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

type (
	// SoundFont is the part of an SF2 file the engine needs: the bank name
	// and the preset headers, in file order. Sample data is not kept; the
	// rendering voices are synthesized.
	SoundFont struct {
		Name    string
		Presets []Preset
	}

	// Preset is one phdr record: a named preset addressable by (bank,
	// program).
	Preset struct {
		Name    string
		Bank    int
		Program int
	}
)

// phdrRecord is the 38-byte preset header layout of the SF2 pdta/phdr
// subchunk.
type phdrRecord struct {
	Name       [20]byte
	Preset     uint16
	Bank       uint16
	BagIndex   uint16
	Library    uint32
	Genre      uint32
	Morphology uint32
}

const phdrRecordSize = 38

// LoadSoundFont reads the preset headers of an SF2 file.
func LoadSoundFont(filename string) (*SoundFont, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open sound bank: %w", err)
	}
	defer f.Close()
	sf, err := ReadSoundFont(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("could not read sound bank %v: %w", filename, err)
	}
	return sf, nil
}

// ReadSoundFont parses an SF2 (RIFF sfbk) stream, walking the LIST chunks
// and reading the INFO bank name and the pdta preset headers. Unknown
// chunks are skipped.
func ReadSoundFont(r io.Reader) (*SoundFont, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("could not read RIFF header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "sfbk" {
		return nil, errors.New("not a SoundFont (RIFF sfbk) file")
	}
	body := io.LimitReader(r, chunkLen(header[4:8])-4)
	sf := &SoundFont{}
	for {
		var ch [12]byte
		if _, err := io.ReadFull(body, ch[:8]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("could not read chunk header: %w", err)
		}
		size := chunkLen(ch[4:8])
		if string(ch[0:4]) != "LIST" {
			if err := skipChunk(body, size); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := io.ReadFull(body, ch[8:12]); err != nil {
			return nil, fmt.Errorf("could not read LIST type: %w", err)
		}
		list := io.LimitReader(body, size-4)
		switch string(ch[8:12]) {
		case "INFO":
			if err := sf.readInfo(list); err != nil {
				return nil, err
			}
		case "pdta":
			if err := sf.readPdta(list); err != nil {
				return nil, err
			}
		}
		// drain whatever the reader above left unread, plus the pad byte of
		// an odd-sized chunk
		if _, err := io.Copy(io.Discard, list); err != nil {
			return nil, fmt.Errorf("could not skip LIST remainder: %w", err)
		}
		if err := skipPad(body, size); err != nil {
			return nil, err
		}
	}
	return sf, nil
}

// readInfo scans the INFO subchunks for the INAM bank name.
func (sf *SoundFont) readInfo(r io.Reader) error {
	return eachSubchunk(r, func(id string, body io.Reader, size int64) error {
		if id != "INAM" {
			return nil
		}
		name := make([]byte, size)
		if _, err := io.ReadFull(body, name); err != nil {
			return fmt.Errorf("could not read INAM: %w", err)
		}
		sf.Name = zeroTerminated(name)
		return nil
	})
}

// readPdta reads the phdr preset headers. The final record is the EOP
// terminator and is dropped.
func (sf *SoundFont) readPdta(r io.Reader) error {
	return eachSubchunk(r, func(id string, body io.Reader, size int64) error {
		if id != "phdr" {
			return nil
		}
		if size%phdrRecordSize != 0 {
			return fmt.Errorf("phdr chunk size %d is not a multiple of %d", size, phdrRecordSize)
		}
		count := int(size / phdrRecordSize)
		for i := 0; i < count; i++ {
			var rec phdrRecord
			if err := binary.Read(body, binary.LittleEndian, &rec); err != nil {
				return fmt.Errorf("could not read phdr record %d: %w", i, err)
			}
			if i == count-1 {
				break // EOP terminal record
			}
			sf.Presets = append(sf.Presets, Preset{
				Name:    zeroTerminated(rec.Name[:]),
				Bank:    int(rec.Bank),
				Program: int(rec.Preset),
			})
		}
		return nil
	})
}

// eachSubchunk walks the 8-byte-headed subchunks of a LIST body, calling fn
// with a reader limited to each subchunk.
func eachSubchunk(r io.Reader, fn func(id string, body io.Reader, size int64) error) error {
	for {
		var sub [8]byte
		if _, err := io.ReadFull(r, sub[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("could not read subchunk header: %w", err)
		}
		size := chunkLen(sub[4:8])
		body := io.LimitReader(r, size)
		if err := fn(string(sub[0:4]), body, size); err != nil {
			return err
		}
		if _, err := io.Copy(io.Discard, body); err != nil {
			return fmt.Errorf("could not skip subchunk: %w", err)
		}
		if err := skipPad(r, size); err != nil {
			return err
		}
	}
}

func chunkLen(dword []byte) int64 {
	return int64(binary.LittleEndian.Uint32(dword))
}

func skipChunk(r io.Reader, size int64) error {
	if _, err := io.CopyN(io.Discard, r, size); err != nil {
		return fmt.Errorf("could not skip chunk: %w", err)
	}
	return skipPad(r, size)
}

// skipPad consumes the pad byte after an odd-sized chunk. EOF here is fine:
// the pad of the very last chunk may be missing.
func skipPad(r io.Reader, size int64) error {
	if size%2 == 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, 1); err != nil && err != io.EOF {
		return fmt.Errorf("could not skip pad byte: %w", err)
	}
	return nil
}

func zeroTerminated(b []byte) string {
	for i, v := range b {
		if v == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
