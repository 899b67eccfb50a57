package library

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// gltfFile is a parsed glTF document with every buffer resolved to bytes.
type gltfFile struct {
	doc     gltfDocument
	buffers [][]byte
}

// parseGLTFFile reads a .gltf or .glb file. Binary files are detected by extension or by the GLB
// magic number, so a mislabelled file still parses.
func parseGLTFFile(path string) (*gltfFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	var f *gltfFile
	if strings.EqualFold(filepath.Ext(path), ".glb") ||
		(len(data) >= 4 && binary.LittleEndian.Uint32(data) == gltfGLBMagic) {
		f, err = parseGLB(data, baseDir)
	} else {
		f, err = parseGLTF(data, baseDir, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return f, nil
}

func parseGLTF(data []byte, baseDir string, bin []byte) (*gltfFile, error) {
	f := &gltfFile{}
	if err := json.Unmarshal(data, &f.doc); err != nil {
		return nil, fmt.Errorf("%w: glTF JSON: %v", ErrMalformed, err)
	}
	if !strings.HasPrefix(f.doc.Asset.Version, "2.") {
		return nil, fmt.Errorf("%w: glTF version %q, want 2.x", ErrUnsupportedFormat, f.doc.Asset.Version)
	}

	f.buffers = make([][]byte, len(f.doc.Buffers))
	for i, buf := range f.doc.Buffers {
		var (
			raw []byte
			err error
		)
		switch {
		case buf.URI == "" && i == 0 && bin != nil:
			raw = bin
		case buf.URI == "":
			err = fmt.Errorf("%w: buffer %d has no uri", ErrMalformed, i)
		case strings.HasPrefix(buf.URI, "data:"):
			raw, err = decodeDataURI(buf.URI)
		default:
			raw, err = os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(buf.URI)))
		}
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i, err)
		}
		if len(raw) < buf.ByteLength {
			return nil, fmt.Errorf("%w: buffer %d holds %d bytes, byteLength is %d", ErrMalformed, i, len(raw), buf.ByteLength)
		}
		f.buffers[i] = raw
	}
	return f, nil
}

// parseGLB splits a binary glTF container into its JSON and BIN chunks.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func parseGLB(data []byte, baseDir string) (*gltfFile, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: GLB header truncated", ErrMalformed)
	}
	if binary.LittleEndian.Uint32(data[0:]) != gltfGLBMagic {
		return nil, fmt.Errorf("%w: bad GLB magic", ErrMalformed)
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != gltfGLBVersion {
		return nil, fmt.Errorf("%w: GLB version %d", ErrUnsupportedFormat, v)
	}

	var jsonChunk, binChunk []byte
	for off := 12; off+8 <= len(data); {
		length := int(binary.LittleEndian.Uint32(data[off:]))
		kind := binary.LittleEndian.Uint32(data[off+4:])
		off += 8
		if length < 0 || off+length > len(data) {
			return nil, fmt.Errorf("%w: GLB chunk overruns the file", ErrMalformed)
		}
		switch kind {
		case gltfGLBChunkJSON:
			jsonChunk = data[off : off+length]
		case gltfGLBChunkBIN:
			binChunk = data[off : off+length]
		}
		off += length
	}
	if jsonChunk == nil {
		return nil, fmt.Errorf("%w: GLB has no JSON chunk", ErrMalformed)
	}
	return parseGLTF(jsonChunk, baseDir, binChunk)
}

// decodeDataURI decodes data:[<mediatype>];base64,<data>.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: only base64 data URIs are supported", ErrUnsupportedFormat)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: data URI: %v", ErrMalformed, err)
	}
	return data, nil
}

// readFloats reads an accessor of the given type into a flat float slice, converting normalized
// integer components to [0, 1] or [-1, 1]. An accessor without a buffer view reads as zeros.
func (f *gltfFile) readFloats(index int, accessorType string) ([]float32, error) {
	if index < 0 || index >= len(f.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d out of range", ErrMalformed, index)
	}
	acc := f.doc.Accessors[index]
	if acc.Type != accessorType {
		return nil, fmt.Errorf("%w: accessor %d is %s, want %s", ErrMalformed, index, acc.Type, accessorType)
	}
	if acc.Sparse != nil {
		return nil, fmt.Errorf("%w: accessor %d is sparse", ErrUnsupportedFormat, index)
	}

	width := gltfTypeWidth(acc.Type)
	size := gltfComponentSize(acc.ComponentType)
	if size == 0 {
		return nil, fmt.Errorf("%w: accessor %d component type %d", ErrMalformed, index, acc.ComponentType)
	}

	out := make([]float32, acc.Count*width)
	if acc.BufferView == nil || acc.Count == 0 {
		return out, nil
	}

	if *acc.BufferView < 0 || *acc.BufferView >= len(f.doc.BufferViews) {
		return nil, fmt.Errorf("%w: accessor %d buffer view out of range", ErrMalformed, index)
	}
	view := f.doc.BufferViews[*acc.BufferView]
	if view.Buffer < 0 || view.Buffer >= len(f.buffers) {
		return nil, fmt.Errorf("%w: buffer view %d buffer out of range", ErrMalformed, *acc.BufferView)
	}
	buf := f.buffers[view.Buffer]

	stride := width * size
	if view.ByteStride != nil && *view.ByteStride > 0 {
		stride = *view.ByteStride
	}
	start := view.ByteOffset + acc.ByteOffset
	end := start + (acc.Count-1)*stride + width*size
	if end > view.ByteOffset+view.ByteLength || end > len(buf) {
		return nil, fmt.Errorf("%w: accessor %d overruns its buffer view", ErrMalformed, index)
	}

	for i := range acc.Count {
		for c := range width {
			off := start + i*stride + c*size
			out[i*width+c] = gltfComponent(buf[off:], acc.ComponentType, acc.Normalized)
		}
	}
	return out, nil
}

func gltfComponent(b []byte, componentType int, normalized bool) float32 {
	switch componentType {
	case gltfComponentFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltfComponentByte:
		v := float32(int8(b[0]))
		if normalized {
			return max(v/127, -1)
		}
		return v
	case gltfComponentUnsignedByte:
		v := float32(b[0])
		if normalized {
			return v / 255
		}
		return v
	case gltfComponentShort:
		v := float32(int16(binary.LittleEndian.Uint16(b)))
		if normalized {
			return max(v/32767, -1)
		}
		return v
	case gltfComponentUnsignedShort:
		v := float32(binary.LittleEndian.Uint16(b))
		if normalized {
			return v / 65535
		}
		return v
	case gltfComponentUnsignedInt:
		return float32(binary.LittleEndian.Uint32(b))
	default:
		return 0
	}
}

func gltfComponentSize(componentType int) int {
	switch componentType {
	case gltfComponentByte, gltfComponentUnsignedByte:
		return 1
	case gltfComponentShort, gltfComponentUnsignedShort:
		return 2
	case gltfComponentUnsignedInt, gltfComponentFloat:
		return 4
	default:
		return 0
	}
}

func gltfTypeWidth(accessorType string) int {
	switch accessorType {
	case gltfTypeScalar:
		return 1
	case gltfTypeVec3:
		return 3
	case gltfTypeVec4:
		return 4
	default:
		return 0
	}
}
