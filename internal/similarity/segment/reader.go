// Package segment persists MinHash signatures in .lshx snapshot files: a
// fixed header carrying the index configuration, a body of
// [idLen u16][id][signature u32...] records, and a footer holding the body
// CRC32 and the document count.
package segment

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/minhash"
)

type Reader struct {
	filePath string
	header   Header
	docs     []Document
}

// OpenReader loads and verifies a whole snapshot file.
func OpenReader(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file: %w", err)
	}
	if len(data) < HeaderSize+FooterSize {
		return nil, fmt.Errorf("invalid snapshot file: %d bytes is too short", len(data))
	}
	header := decodeHeader(data[:HeaderSize])
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("invalid snapshot file: bad magic bytes %x", header.Magic)
	}
	if header.Version == 0 || header.Version > FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", header.Version)
	}
	if header.Version >= headerChecksumVersion {
		stored := binary.LittleEndian.Uint32(data[headerCRCOffset:])
		if sum := crc32.ChecksumIEEE(data[:headerCRCOffset]); stored != sum {
			return nil, fmt.Errorf("snapshot header checksum mismatch: stored %08x, computed %08x", stored, sum)
		}
	}
	end := header.BodyOffset + header.BodySize
	if header.BodyOffset != int64(HeaderSize) || end+int64(FooterSize) != int64(len(data)) {
		return nil, fmt.Errorf("invalid snapshot file: body [%d,%d) does not fit %d bytes",
			header.BodyOffset, end, len(data))
	}
	body := data[header.BodyOffset:end]
	footer := data[end:]
	if sum := binary.LittleEndian.Uint32(footer[0:4]); sum != crc32.ChecksumIEEE(body) {
		return nil, fmt.Errorf("snapshot checksum mismatch: stored %08x", sum)
	}
	if n := binary.LittleEndian.Uint32(footer[4:8]); n != header.DocCount {
		return nil, fmt.Errorf("snapshot footer counts %d documents, header says %d", n, header.DocCount)
	}
	docs, err := decodeBody(body, header)
	if err != nil {
		return nil, err
	}
	return &Reader{filePath: path, header: header, docs: docs}, nil
}

// decodeBody parses the body records. Every record takes at least
// 2+4*NumHashFunctions bytes, which bounds DocCount before anything is
// allocated.
func decodeBody(body []byte, header Header) ([]Document, error) {
	if header.NumHashFunctions == 0 {
		return nil, fmt.Errorf("invalid snapshot header: zero hash functions")
	}
	sigBytes := uint64(header.NumHashFunctions) * 4
	if sigBytes > uint64(len(body)) {
		return nil, fmt.Errorf("invalid snapshot header: %d hash functions do not fit a %d byte body",
			header.NumHashFunctions, len(body))
	}
	if uint64(header.DocCount)*(2+sigBytes) > uint64(len(body)) {
		return nil, fmt.Errorf("invalid snapshot header: %d documents do not fit a %d byte body",
			header.DocCount, len(body))
	}
	docs := make([]Document, 0, header.DocCount)
	for off := 0; off < len(body); {
		if off+2 > len(body) {
			return nil, fmt.Errorf("truncated record at offset %d", off)
		}
		idLen := int(binary.LittleEndian.Uint16(body[off:]))
		off += 2
		if uint64(off+idLen)+sigBytes > uint64(len(body)) {
			return nil, fmt.Errorf("truncated record at offset %d", off)
		}
		id := string(body[off : off+idLen])
		off += idLen
		sig := make(minhash.Signature, header.NumHashFunctions)
		for i := range sig {
			sig[i] = binary.LittleEndian.Uint32(body[off:])
			off += 4
		}
		docs = append(docs, Document{ID: id, Signature: sig})
	}
	if uint32(len(docs)) != header.DocCount {
		return nil, fmt.Errorf("snapshot holds %d documents, header says %d", len(docs), header.DocCount)
	}
	return docs, nil
}

func (r *Reader) Header() Header {
	return r.header
}

func (r *Reader) Documents() []Document {
	return r.docs
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Path() string {
	return r.filePath
}

// Latest returns the path of the newest snapshot in dir, or "" when there is
// none. A missing directory is not an error.
func Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading snapshot directory: %w", err)
	}
	names := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), FileSuffix) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}
