package device

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// EntryKind classifies a directory entry.
type EntryKind int

const (
	// KindFile is a regular file.
	KindFile EntryKind = iota
	// KindDirectory is a directory.
	KindDirectory
)

func (k EntryKind) String() string {
	if k == KindDirectory {
		return "directory"
	}

	return "file"
}

// DirEntry is one name in a remote directory listing.
type DirEntry struct {
	Name string
	Path string
	Kind EntryKind
}

// statDirMask is the S_IFDIR bit in an os.stat() mode word.
const statDirMask = 0x4000

// ListDir lists the names under dir, sorted, with each entry classified as
// file or directory. Classification stats each name individually; when a
// stat fails the kind falls back to a name heuristic (no dot means
// directory), so a listing never fails on classification alone.
func (c *Client) ListDir(dir string) ([]DirEntry, error) {
	res, err := c.run(fmt.Sprintf("import os\nprint(os.listdir(%q))", dir))
	if err != nil {
		return nil, err
	}

	names := parsePyList(lastLine(res.Output))
	sort.Strings(names)

	entries := make([]DirEntry, 0, len(names))
	for _, name := range names {
		full := path.Join(dir, name)
		entries = append(entries, DirEntry{
			Name: name,
			Path: full,
			Kind: c.classify(full, name),
		})
	}

	return entries, nil
}

func (c *Client) classify(full, name string) EntryKind {
	res, err := c.run(fmt.Sprintf("import os\nprint(os.stat(%q)[0])", full))
	if err == nil {
		var mode int
		if _, scanErr := fmt.Sscanf(lastLine(res.Output), "%d", &mode); scanErr == nil {
			if mode&statDirMask != 0 {
				return KindDirectory
			}

			return KindFile
		}
	}

	c.logger.Debug("stat fallback to name heuristic", "path", full)

	if strings.Contains(name, ".") {
		return KindFile
	}

	return KindDirectory
}

// Remove deletes the file at path on the device.
func (c *Client) Remove(path string) error {
	_, err := c.run(fmt.Sprintf("import os\nos.remove(%q)", path))
	return err
}

// Mkdir creates the directory at path on the device.
func (c *Client) Mkdir(path string) error {
	_, err := c.run(fmt.Sprintf("import os\nos.mkdir(%q)", path))
	return err
}

// Rmdir removes the empty directory at path on the device.
func (c *Client) Rmdir(path string) error {
	_, err := c.run(fmt.Sprintf("import os\nos.rmdir(%q)", path))
	return err
}
