package graph

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
)

const (
	graphMagic  = "TRIPCHGR"
	labelsMagic = "TRIPCHLB"
	keyedMagic  = "TRIPCHKL"
	version     = uint32(2)

	maxVertices     = 50_000_000
	maxEdges        = 200_000_000
	maxLabelLen     = 1 << 16
	maxShortcutArgs = 1 << 16
	maxPayloadDepth = 4096
)

// ErrCorrupt is returned when a file fails validation.
var ErrCorrupt = errors.New("corrupt graph file")

// Kind tags what an artifact holds so files cannot be swapped by accident.
type Kind uint32

const (
	KindBase Kind = iota
	KindUp
	KindDown
	KindRemainder
	KindOrder
	KindQueue
)

func (k Kind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindUp:
		return "up"
	case KindDown:
		return "down"
	case KindRemainder:
		return "remainder"
	case KindOrder:
		return "order"
	case KindQueue:
		return "queue"
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// Meta is stored in every artifact header. BuildID ties the artifacts of one
// build together; SaveID ties those written by one save.
type Meta struct {
	Kind    Kind
	BuildID [16]byte
	SaveID  [16]byte
}

// fileHeader is the binary header.
type fileHeader struct {
	Magic   [8]byte
	Version uint32
	Kind    uint32
	BuildID [16]byte
	SaveID  [16]byte
	Count1  uint32 // vertices, or labels
	Count2  uint32 // edges; zero for label files
}

// payload type tags
const (
	tagStreet   byte = 1
	tagLink     byte = 2
	tagShortcut byte = 3
)

// WriteBinary serializes a graph: vertices in label order, then edges in ID order.
func WriteBinary(path string, g *Graph, meta Meta) error {
	labels := g.Labels()
	index := make(map[string]uint32, len(labels))
	for i, l := range labels {
		index[l] = uint32(i)
	}
	edges := g.Edges()

	return writeAtomic(path, func(w *encoder) {
		hdr := fileHeader{
			Version: version,
			Kind:    uint32(meta.Kind),
			BuildID: meta.BuildID,
			SaveID:  meta.SaveID,
			Count1:  uint32(len(labels)),
			Count2:  uint32(len(edges)),
		}
		copy(hdr.Magic[:], graphMagic)
		w.write(&hdr)

		for _, l := range labels {
			v := g.vertices[l]
			w.string(l)
			var flags byte
			if v.enabled {
				flags |= 1
			}
			if v.HasCoord {
				flags |= 2
			}
			w.write(flags)
			if v.HasCoord {
				w.write(v.Lat)
				w.write(v.Lon)
			}
		}

		for _, e := range edges {
			w.write(index[e.From])
			w.write(index[e.To])
			w.payload(e.Payload, 0)
		}
	})
}

// ReadBinary deserializes a graph written by WriteBinary. Edge IDs are
// reassigned in the stored order.
func ReadBinary(path string) (*Graph, Meta, error) {
	var g *Graph
	meta, err := readVerified(path, graphMagic, func(hdr fileHeader, r *decoder) error {
		if hdr.Count1 > maxVertices {
			return fmt.Errorf("%w: %d vertices exceeds limit %d", ErrCorrupt, hdr.Count1, maxVertices)
		}
		if hdr.Count2 > maxEdges {
			return fmt.Errorf("%w: %d edges exceeds limit %d", ErrCorrupt, hdr.Count2, maxEdges)
		}

		g = New()
		labels := make([]string, hdr.Count1)
		for i := range labels {
			l := r.string()
			var flags byte
			r.read(&flags)
			if r.err != nil {
				return fmt.Errorf("read vertex %d: %w", i, r.err)
			}
			v := g.AddVertex(l)
			v.enabled = flags&1 != 0
			if flags&2 != 0 {
				r.read(&v.Lat)
				r.read(&v.Lon)
				if r.err == nil && (!isFinite(v.Lat) || !isFinite(v.Lon)) {
					return fmt.Errorf("%w: vertex %q has non-finite coordinate", ErrCorrupt, l)
				}
				v.HasCoord = true
			}
			labels[i] = l
		}
		if r.err != nil {
			return fmt.Errorf("read vertices: %w", r.err)
		}

		for i := uint32(0); i < hdr.Count2; i++ {
			var from, to uint32
			r.read(&from)
			r.read(&to)
			p := r.payload(0)
			if r.err != nil {
				return fmt.Errorf("read edge %d: %w", i, r.err)
			}
			if from >= hdr.Count1 || to >= hdr.Count1 {
				return fmt.Errorf("%w: edge %d endpoint out of range", ErrCorrupt, i)
			}
			if _, err := g.AddEdge(labels[from], labels[to], p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, Meta{}, err
	}
	return g, meta, nil
}

// WriteLabels serializes an ordered list of labels.
func WriteLabels(path string, labels []string, meta Meta) error {
	return writeAtomic(path, func(w *encoder) {
		hdr := fileHeader{
			Version: version,
			Kind:    uint32(meta.Kind),
			BuildID: meta.BuildID,
			SaveID:  meta.SaveID,
			Count1:  uint32(len(labels)),
		}
		copy(hdr.Magic[:], labelsMagic)
		w.write(&hdr)
		for _, l := range labels {
			w.string(l)
		}
	})
}

// ReadLabels deserializes a list written by WriteLabels.
func ReadLabels(path string) ([]string, Meta, error) {
	var labels []string
	meta, err := readVerified(path, labelsMagic, func(hdr fileHeader, r *decoder) error {
		if hdr.Count1 > maxVertices {
			return fmt.Errorf("%w: %d labels exceeds limit %d", ErrCorrupt, hdr.Count1, maxVertices)
		}
		labels = make([]string, hdr.Count1)
		for i := range labels {
			labels[i] = r.string()
		}
		if r.err != nil {
			return fmt.Errorf("read labels: %w", r.err)
		}
		return nil
	})
	if err != nil {
		return nil, Meta{}, err
	}
	return labels, meta, nil
}

// KeyedLabel is a label tagged with two integers, such as a queue entry and
// its key.
type KeyedLabel struct {
	Label              string
	Primary, Secondary int64
}

// WriteKeyedLabels serializes an ordered list of keyed labels.
func WriteKeyedLabels(path string, entries []KeyedLabel, meta Meta) error {
	return writeAtomic(path, func(w *encoder) {
		hdr := fileHeader{
			Version: version,
			Kind:    uint32(meta.Kind),
			BuildID: meta.BuildID,
			SaveID:  meta.SaveID,
			Count1:  uint32(len(entries)),
		}
		copy(hdr.Magic[:], keyedMagic)
		w.write(&hdr)
		for _, e := range entries {
			w.string(e.Label)
			w.write(e.Primary)
			w.write(e.Secondary)
		}
	})
}

// ReadKeyedLabels deserializes a list written by WriteKeyedLabels.
func ReadKeyedLabels(path string) ([]KeyedLabel, Meta, error) {
	var entries []KeyedLabel
	meta, err := readVerified(path, keyedMagic, func(hdr fileHeader, r *decoder) error {
		if hdr.Count1 > maxVertices {
			return fmt.Errorf("%w: %d entries exceeds limit %d", ErrCorrupt, hdr.Count1, maxVertices)
		}
		entries = make([]KeyedLabel, hdr.Count1)
		for i := range entries {
			entries[i].Label = r.string()
			r.read(&entries[i].Primary)
			r.read(&entries[i].Secondary)
		}
		if r.err != nil {
			return fmt.Errorf("read entries: %w", r.err)
		}
		return nil
	})
	if err != nil {
		return nil, Meta{}, err
	}
	return entries, meta, nil
}

// writeAtomic writes through a CRC32 hash into a temp file, appends the
// checksum and renames the file into place.
func writeAtomic(path string, body func(w *encoder)) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	bw := bufio.NewWriterSize(f, 1<<20)
	crcWriter := &crc32Writer{w: bw, hash: crc32.NewIEEE()}
	enc := &encoder{w: crcWriter}
	body(enc)
	if enc.err != nil {
		return fmt.Errorf("encode %s: %w", path, enc.err)
	}

	if err := binary.Write(bw, binary.LittleEndian, crcWriter.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func readVerified(path, magic string, body func(hdr fileHeader, r *decoder) error) (Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return Meta{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 1<<20)
	crcReader := &crc32Reader{r: br, hash: crc32.NewIEEE()}
	dec := &decoder{r: crcReader}

	var hdr fileHeader
	if err := binary.Read(crcReader, binary.LittleEndian, &hdr); err != nil {
		return Meta{}, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magic {
		return Meta{}, fmt.Errorf("%w: invalid magic bytes %q", ErrCorrupt, hdr.Magic)
	}
	if hdr.Version != version {
		return Meta{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, hdr.Version)
	}

	if err := body(hdr, dec); err != nil {
		return Meta{}, err
	}

	// Read and validate CRC32.
	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(br, binary.LittleEndian, &storedCRC); err != nil {
		return Meta{}, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return Meta{}, fmt.Errorf("%w: CRC32 mismatch: stored=%08x computed=%08x", ErrCorrupt, storedCRC, expectedCRC)
	}

	return Meta{Kind: Kind(hdr.Kind), BuildID: hdr.BuildID, SaveID: hdr.SaveID}, nil
}

// encoder is a little-endian writer with a sticky error.
type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) write(v any) {
	if e.err != nil {
		return
	}
	e.err = binary.Write(e.w, binary.LittleEndian, v)
}

func (e *encoder) string(s string) {
	if len(s) > maxLabelLen {
		if e.err == nil {
			e.err = fmt.Errorf("label of %d bytes exceeds limit %d", len(s), maxLabelLen)
		}
		return
	}
	e.write(uint32(len(s)))
	if e.err == nil {
		_, e.err = io.WriteString(e.w, s)
	}
}

func (e *encoder) payload(p Payload, depth int) {
	if depth > maxPayloadDepth {
		if e.err == nil {
			e.err = fmt.Errorf("payload nesting exceeds %d", maxPayloadDepth)
		}
		return
	}
	switch p := p.(type) {
	case Street:
		e.write(tagStreet)
		e.write(p.Length)
		e.write(p.Speed)
	case Link:
		e.write(tagLink)
		e.write(p.Seconds)
	case Shortcut:
		e.write(tagShortcut)
		e.write(uint32(len(p.Parts)))
		for _, part := range p.Parts {
			e.payload(part, depth+1)
		}
	default:
		if e.err == nil {
			e.err = fmt.Errorf("unsupported payload %T", p)
		}
	}
}

// decoder is a little-endian reader with a sticky error.
type decoder struct {
	r   io.Reader
	err error
}

func (d *decoder) read(v any) {
	if d.err != nil {
		return
	}
	d.err = binary.Read(d.r, binary.LittleEndian, v)
}

func (d *decoder) string() string {
	var n uint32
	d.read(&n)
	if d.err != nil {
		return ""
	}
	if n > maxLabelLen {
		d.err = fmt.Errorf("%w: label length %d exceeds limit %d", ErrCorrupt, n, maxLabelLen)
		return ""
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		d.err = err
		return ""
	}
	return string(buf)
}

func (d *decoder) payload(depth int) Payload {
	if depth > maxPayloadDepth {
		d.err = fmt.Errorf("%w: payload nesting exceeds %d", ErrCorrupt, maxPayloadDepth)
		return nil
	}
	var tag byte
	d.read(&tag)
	if d.err != nil {
		return nil
	}
	switch tag {
	case tagStreet:
		var p Street
		d.read(&p.Length)
		d.read(&p.Speed)
		return p
	case tagLink:
		var p Link
		d.read(&p.Seconds)
		return p
	case tagShortcut:
		var n uint32
		d.read(&n)
		if d.err != nil {
			return nil
		}
		if n > maxShortcutArgs {
			d.err = fmt.Errorf("%w: shortcut with %d parts", ErrCorrupt, n)
			return nil
		}
		parts := make([]Payload, 0, n)
		for i := uint32(0); i < n && d.err == nil; i++ {
			parts = append(parts, d.payload(depth+1))
		}
		return Shortcut{Parts: parts}
	}
	d.err = fmt.Errorf("%w: unknown payload tag %d", ErrCorrupt, tag)
	return nil
}

// isFinite guards coordinates read from disk.
func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
