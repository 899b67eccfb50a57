package library

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/buger/jsonparser"
	"gopkg.in/yaml.v3"
)

// clipDecoder turns the raw bytes of one clip file into a clip document.
// Concrete decoders handle format-specific details; the library only picks one by extension.
type clipDecoder interface {
	// Decode parses a clip file.
	//
	// Parameters:
	//   - data: the file contents
	//
	// Returns:
	//   - clipDoc: the decoded document
	//   - error: error if the data is not a well-formed clip file
	Decode(data []byte) (clipDoc, error)
}

type yamlClipDecoder struct{}

func (yamlClipDecoder) Decode(data []byte) (clipDoc, error) {
	var doc clipDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return clipDoc{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc, nil
}

// jsonClipDecoder walks the document with jsonparser instead of reflecting into clipDoc, so a
// frame array is never materialized twice.
type jsonClipDecoder struct{}

func (jsonClipDecoder) Decode(data []byte) (clipDoc, error) {
	var doc clipDoc
	var err error

	if doc.Name, err = optionalString(data, "name"); err != nil {
		return clipDoc{}, err
	}
	if fps, err := jsonparser.GetInt(data, "frame_rate"); err == nil {
		doc.FrameRate = int(fps)
	} else if err != jsonparser.KeyPathNotFoundError {
		return clipDoc{}, fmt.Errorf("%w: frame_rate: %v", ErrMalformed, err)
	}
	if looping, err := jsonparser.GetBoolean(data, "looping"); err == nil {
		doc.Looping = looping
	} else if err != jsonparser.KeyPathNotFoundError {
		return clipDoc{}, fmt.Errorf("%w: looping: %v", ErrMalformed, err)
	}

	var walkErr error
	_, err = jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if walkErr != nil {
			return
		}
		if dataType != jsonparser.String {
			walkErr = fmt.Errorf("%w: targets must be strings", ErrMalformed)
			return
		}
		name, err := jsonparser.ParseString(value)
		if err != nil {
			walkErr = fmt.Errorf("%w: targets: %v", ErrMalformed, err)
			return
		}
		doc.Targets = append(doc.Targets, name)
	}, "targets")
	if err = firstErr(walkErr, err); err != nil {
		return clipDoc{}, err
	}

	_, err = jsonparser.ArrayEach(data, func(frameValue []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if walkErr != nil {
			return
		}
		if dataType != jsonparser.Array {
			walkErr = fmt.Errorf("%w: frame %d is not an array", ErrMalformed, len(doc.Frames))
			return
		}
		var frame []transformDoc
		_, err := jsonparser.ArrayEach(frameValue, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
			if walkErr != nil {
				return
			}
			if dataType != jsonparser.Object {
				walkErr = fmt.Errorf("%w: frame %d: transforms must be objects", ErrMalformed, len(doc.Frames))
				return
			}
			td, err := decodeJSONTransform(value)
			if err != nil {
				walkErr = fmt.Errorf("frame %d: %w", len(doc.Frames), err)
				return
			}
			frame = append(frame, td)
		})
		if err != nil && walkErr == nil {
			walkErr = fmt.Errorf("%w: frame %d: %v", ErrMalformed, len(doc.Frames), err)
		}
		doc.Frames = append(doc.Frames, frame)
	}, "frames")
	if err = firstErr(walkErr, err); err != nil {
		return clipDoc{}, err
	}
	return doc, nil
}

func decodeJSONTransform(data []byte) (transformDoc, error) {
	var td transformDoc
	var err error
	if td.T, err = floatArray(data, "t"); err != nil {
		return td, err
	}
	if td.R, err = floatArray(data, "r"); err != nil {
		return td, err
	}
	if td.S, err = floatArray(data, "s"); err != nil {
		return td, err
	}
	return td, nil
}

// floatArray reads an optional array of numbers. A missing key yields nil.
func floatArray(data []byte, key string) ([]float32, error) {
	var out []float32
	var walkErr error
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if walkErr != nil {
			return
		}
		if dataType != jsonparser.Number {
			walkErr = fmt.Errorf("%w: %s: expected a number, got %s", ErrMalformed, key, dataType)
			return
		}
		f, err := jsonparser.ParseFloat(value)
		if err != nil {
			walkErr = fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
			return
		}
		out = append(out, float32(f))
	}, key)
	if err = firstErr(walkErr, err); err != nil {
		return nil, err
	}
	return out, nil
}

func optionalString(data []byte, key string) (string, error) {
	s, err := jsonparser.GetString(data, key)
	if err == jsonparser.KeyPathNotFoundError {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return s, nil
}

// firstErr prefers a callback error over the walker's own, and treats a missing key as empty.
func firstErr(walkErr, err error) error {
	if walkErr != nil {
		return walkErr
	}
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// decoderFor selects the clip decoder for a file by extension.
func decoderFor(path string) (clipDecoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlClipDecoder{}, nil
	case ".json":
		return jsonClipDecoder{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// isClipFile reports whether a path has an extension LoadDir and Watch pick up.
func isClipFile(path string) bool {
	_, err := decoderFor(path)
	return err == nil
}
