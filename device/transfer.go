package device

import (
	"encoding/hex"
	"fmt"
)

// ProgressFunc reports cumulative written bytes after each applied chunk.
type ProgressFunc func(written, total int)

// WriteFile writes data to path on the device, creating or truncating it.
//
// The payload is hex-encoded and split into chunks of at most the configured
// chunk size. The first chunk opens the file in create/truncate mode, later
// chunks append; each chunk is applied as four fully-synchronized primitive
// round trips (import helper, open handle, write decoded chunk, close
// handle). progress may be nil.
func (c *Client) WriteFile(path string, data []byte, progress ProgressFunc) error {
	total := len(data)

	c.logger.Debug("write file", "path", path, "bytes", total, "chunk_size", c.chunkSize)

	offset := 0
	for {
		end := offset + c.chunkSize
		if end > total {
			end = total
		}

		mode := "ab"
		if offset == 0 {
			mode = "wb"
		}

		if err := c.writeChunk(path, data[offset:end], mode); err != nil {
			return fmt.Errorf("write %s at offset %d: %w", path, offset, err)
		}

		offset = end
		if progress != nil {
			progress(offset, total)
		}

		if offset >= total {
			return nil
		}
	}
}

// writeChunk applies one chunk as an atomic open-write-close sequence.
func (c *Client) writeChunk(path string, chunk []byte, mode string) error {
	cmds := []string{
		"import ubinascii",
		fmt.Sprintf("_f = open(%q, %q)", path, mode),
		fmt.Sprintf("_f.write(ubinascii.unhexlify('%s'))", hex.EncodeToString(chunk)),
		"_f.close()",
	}

	for _, cmd := range cmds {
		if _, err := c.run(cmd); err != nil {
			return err
		}
	}

	return nil
}

// ReadFile reads the full contents of path from the device.
//
// The read is a single round trip: the device hex-encodes the whole file and
// prints it, and the last non-empty output line is decoded. Unlike writes
// there is no chunking, so very large files are bounded by the command
// timeout and by how much text the device can print in one go.
func (c *Client) ReadFile(path string) ([]byte, error) {
	cmd := fmt.Sprintf(
		"import ubinascii\n_f = open(%q, \"rb\")\nprint(ubinascii.hexlify(_f.read()).decode())\n_f.close()",
		path,
	)

	res, err := c.run(cmd)
	if err != nil {
		return nil, err
	}

	encoded := lastLine(res.Output)
	data, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("device: malformed hex payload for %s: %w", path, err)
	}

	c.logger.Debug("read file", "path", path, "bytes", len(data))

	return data, nil
}
