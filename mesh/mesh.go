// Package mesh ingests partitioned-path payloads and uploads them as GPU
// buffer sets.
//
// The payload comes from the external path-partitioning service as a JSON
// envelope with a success variant carrying ten base64-encoded buffers. The
// buffers are opaque here: positions are pairs of 32-bit floats, path IDs
// 16-bit unsigned integers, Loop-Blinn records 4 bytes per vertex, and all
// index buffers 32-bit unsigned integers.
package mesh

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DecodeError reports a payload that could not be decoded into mesh data.
type DecodeError struct {
	// Reason describes what was wrong with the payload.
	Reason string

	// Err is the underlying decode error, if any.
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mesh: decoding payload: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("mesh: decoding payload: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Data is a decoded mesh payload: ten flat byte buffers. Immutable once
// decoded; ownership passes wholesale to the Buffers set that uploads it.
type Data struct {
	BQuads                []byte `json:"bQuads"`
	BVertexPositions      []byte `json:"bVertexPositions"`
	BVertexPathIDs        []byte `json:"bVertexPathIDs"`
	BVertexLoopBlinnData  []byte `json:"bVertexLoopBlinnData"`
	CoverInteriorIndices  []byte `json:"coverInteriorIndices"`
	CoverCurveIndices     []byte `json:"coverCurveIndices"`
	EdgeUpperLineIndices  []byte `json:"edgeUpperLineIndices"`
	EdgeUpperCurveIndices []byte `json:"edgeUpperCurveIndices"`
	EdgeLowerLineIndices  []byte `json:"edgeLowerLineIndices"`
	EdgeLowerCurveIndices []byte `json:"edgeLowerCurveIndices"`
}

// envelope is the partitioning service's response wrapper.
type envelope struct {
	Ok *Data `json:"Ok"`
}

// Decode reads a partitioner response and extracts the mesh data. A
// response without the success variant fails with DecodeError before any
// GPU resource is touched.
func Decode(r io.Reader) (*Data, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, &DecodeError{Reason: "malformed envelope", Err: err}
	}
	if env.Ok == nil {
		return nil, &DecodeError{Reason: "missing success variant"}
	}
	return env.Ok, nil
}

// Fetch retrieves and decodes a mesh payload by URL. A nil client uses
// http.DefaultClient.
func Fetch(ctx context.Context, client *http.Client, url string) (*Data, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("mesh: building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mesh: fetching payload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mesh: fetching payload: unexpected status %s", resp.Status)
	}
	return Decode(resp.Body)
}

// CoverInteriorIndexCount is the number of interior triangle indices.
func (d *Data) CoverInteriorIndexCount() int { return len(d.CoverInteriorIndices) / 4 }

// CoverCurveIndexCount is the number of curve triangle indices.
func (d *Data) CoverCurveIndexCount() int { return len(d.CoverCurveIndices) / 4 }

// MaxPathID returns the largest path ID referenced by the vertex stream.
// Path IDs are 1-based 16-bit little-endian values; zero marks "no path",
// so the result doubles as the path count.
func (d *Data) MaxPathID() int {
	var max uint16
	ids := d.BVertexPathIDs
	for i := 0; i+1 < len(ids); i += 2 {
		if id := binary.LittleEndian.Uint16(ids[i:]); id > max {
			max = id
		}
	}
	return int(max)
}
