package segment

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/minhash"
)

// MagicBytes identifies a valid .lshx snapshot file ("LSHX"). Version 2
// adds a CRC32 of header bytes [0,56) at [56,60); version 1 files are still
// readable.
const (
	MagicBytes    uint32 = 0x4c534858
	FormatVersion uint32 = 2
	HeaderSize    int    = 64
	FooterSize    int    = 8
	FileSuffix           = ".lshx"
)

const (
	headerCRCOffset       = 56
	headerChecksumVersion = 2
)

// Header is the 64-byte header written at the start of every snapshot.
type Header struct {
	Magic            uint32
	Version          uint32
	NumHashFunctions uint32
	Bands            uint32
	ShingleSize      uint32
	DocCount         uint32
	Seed             uint64
	CreatedAt        int64
	BodyOffset       int64
	BodySize         int64
}

// Document is one persisted signature.
type Document struct {
	ID        string
	Signature minhash.Signature
}

// Writer serialises documents into new .lshx snapshot files.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that writes snapshots into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Write atomically creates a new snapshot holding docs. It writes to a .tmp
// file first and renames on success. Every signature must have
// hdr.NumHashFunctions values.
func (w *Writer) Write(hdr Header, docs []Document) (string, error) {
	if len(docs) == 0 {
		return "", fmt.Errorf("cannot write empty snapshot")
	}
	name := fmt.Sprintf("sig_%d%s", time.Now().UnixNano(), FileSuffix)
	finalPath := filepath.Join(w.dataDir, name)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp snapshot file: %w", err)
	}
	defer f.Close()
	defer os.Remove(tmpPath)

	hdr.Magic = MagicBytes
	hdr.Version = FormatVersion
	hdr.DocCount = uint32(len(docs))
	hdr.CreatedAt = time.Now().Unix()
	hdr.BodyOffset = int64(HeaderSize)

	if _, err := f.Write(make([]byte, HeaderSize)); err != nil {
		return "", fmt.Errorf("reserving header: %w", err)
	}

	crc := crc32.NewIEEE()
	bw := bufio.NewWriter(f)
	var bodySize int64
	record := make([]byte, 0, 256)
	for _, doc := range docs {
		if len(doc.ID) > math.MaxUint16 {
			return "", fmt.Errorf("document id too long: %d bytes", len(doc.ID))
		}
		if uint32(len(doc.Signature)) != hdr.NumHashFunctions {
			return "", fmt.Errorf("document %q: signature has %d values, want %d",
				doc.ID, len(doc.Signature), hdr.NumHashFunctions)
		}
		record = record[:0]
		record = binary.LittleEndian.AppendUint16(record, uint16(len(doc.ID)))
		record = append(record, doc.ID...)
		for _, v := range doc.Signature {
			record = binary.LittleEndian.AppendUint32(record, v)
		}
		if _, err := bw.Write(record); err != nil {
			return "", fmt.Errorf("writing document %q: %w", doc.ID, err)
		}
		crc.Write(record)
		bodySize += int64(len(record))
	}
	hdr.BodySize = bodySize

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc.Sum32())
	binary.LittleEndian.PutUint32(footer[4:8], hdr.DocCount)
	if _, err := bw.Write(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("flushing snapshot body: %w", err)
	}
	if _, err := f.WriteAt(encodeHeader(hdr), 0); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing snapshot file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming snapshot file: %w", err)
	}
	return name, nil
}

func encodeHeader(h Header) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.NumHashFunctions)
	binary.LittleEndian.PutUint32(b[12:16], h.Bands)
	binary.LittleEndian.PutUint32(b[16:20], h.ShingleSize)
	binary.LittleEndian.PutUint32(b[20:24], h.DocCount)
	binary.LittleEndian.PutUint64(b[24:32], h.Seed)
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.BodyOffset))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.BodySize))
	if h.Version >= headerChecksumVersion {
		binary.LittleEndian.PutUint32(b[headerCRCOffset:], crc32.ChecksumIEEE(b[:headerCRCOffset]))
	}
	return b
}

func decodeHeader(b []byte) Header {
	return Header{
		Magic:            binary.LittleEndian.Uint32(b[0:4]),
		Version:          binary.LittleEndian.Uint32(b[4:8]),
		NumHashFunctions: binary.LittleEndian.Uint32(b[8:12]),
		Bands:            binary.LittleEndian.Uint32(b[12:16]),
		ShingleSize:      binary.LittleEndian.Uint32(b[16:20]),
		DocCount:         binary.LittleEndian.Uint32(b[20:24]),
		Seed:             binary.LittleEndian.Uint64(b[24:32]),
		CreatedAt:        int64(binary.LittleEndian.Uint64(b[32:40])),
		BodyOffset:       int64(binary.LittleEndian.Uint64(b[40:48])),
		BodySize:         int64(binary.LittleEndian.Uint64(b[48:56])),
	}
}
