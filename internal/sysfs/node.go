// Package sysfs reads and writes kernel-exposed attribute files.
// Every call is an independent open/read-or-write/close cycle; nothing is cached.
package sysfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

var (
	// ErrAttributeRead is returned when an attribute file is missing or unreadable.
	ErrAttributeRead = errors.New("sysfs: attribute read failed")

	// ErrAttributeWrite is returned when an attribute file cannot be written.
	ErrAttributeWrite = errors.New("sysfs: attribute write failed")

	// ErrInvalidValue is returned alongside ErrAttributeWrite when the driver
	// rejects the written value.
	ErrInvalidValue = errors.New("sysfs: value rejected by driver")

	// ErrMalformed is returned alongside ErrAttributeRead when an attribute
	// does not hold the expected textual representation.
	ErrMalformed = errors.New("sysfs: malformed attribute")
)

// Node is a device directory whose files are attributes.
type Node struct {
	base string
}

// NewNode returns a Node rooted at the given device directory.
func NewNode(base string) *Node {
	return &Node{base: base}
}

// Base returns the device directory.
func (n *Node) Base() string {
	return n.base
}

// Path returns the file backing the named attribute.
func (n *Node) Path(attr string) string {
	return filepath.Join(n.base, attr)
}

// Get returns the contents of the attribute with surrounding whitespace removed.
func (n *Node) Get(attr string) (string, error) {
	data, err := os.ReadFile(n.Path(attr))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrAttributeRead, attr, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Set overwrites the attribute with value.
func (n *Node) Set(attr, value string) error {
	f, err := os.OpenFile(n.Path(attr), os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAttributeWrite, attr, err)
	}
	_, err = f.WriteString(value)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EIO) {
			return fmt.Errorf("%w: %w: %s=%q: %w", ErrAttributeWrite, ErrInvalidValue, attr, value, err)
		}
		return fmt.Errorf("%w: %s: %w", ErrAttributeWrite, attr, err)
	}
	return nil
}

// GetInt reads a base-10 integer attribute.
func (n *Node) GetInt(attr string) (int64, error) {
	s, err := n.Get(attr)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w: %s=%q", ErrAttributeRead, ErrMalformed, attr, s)
	}
	return v, nil
}

// SetInt writes v as a base-10 integer.
func (n *Node) SetInt(attr string, v int64) error {
	return n.Set(attr, strconv.FormatInt(v, 10))
}
