package stream

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/argilla-geo/strata/blosc"
	"github.com/argilla-geo/strata/types"
)

// Chunk is the encode-side representation of one chunk record: a header
// line plus raw (uncompressed) data and mask payloads.
type Chunk struct {
	Header types.ChunkHeader
	Data   []byte
	Mask   []byte
}

// WriteStream encodes a complete streaming response body: the two metadata
// lines followed by each chunk's header line and compressed payloads.
// The client only ever decodes; this encoder backs tests, fixtures, and
// local tooling.
func WriteStream(w io.Writer, meta types.StreamMetadata, arrayMeta types.ArrayMetadata, chunks []Chunk) error {
	if err := writeJSONLine(w, meta); err != nil {
		return err
	}
	if err := writeJSONLine(w, arrayMeta); err != nil {
		return err
	}

	for i, c := range chunks {
		if err := writeJSONLine(w, c.Header); err != nil {
			return fmt.Errorf("chunk %d header: %w", i, err)
		}
		if _, err := w.Write(blosc.Compress(c.Data)); err != nil {
			return fmt.Errorf("chunk %d data: %w", i, err)
		}
		if _, err := w.Write(blosc.Compress(c.Mask)); err != nil {
			return fmt.Errorf("chunk %d mask: %w", i, err)
		}
	}
	return nil
}

func writeJSONLine(w io.Writer, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = w.Write(line)
	return err
}
