package message

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
)

// LinkType is the kind of link.
type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

// Link is the link message (type 0x0006).
type Link struct {
	Version       uint8
	LinkType      LinkType
	CreationOrder uint64
	Name          string
	Charset       uint8

	ObjectAddress uint64 // hard links
	SoftLinkValue string // soft links
	ExternalFile  string // external links
	ExternalPath  string
}

func (m *Link) Type() Type { return TypeLink }

func (m *Link) IsHard() bool     { return m.LinkType == LinkTypeHard }
func (m *Link) IsSoft() bool     { return m.LinkType == LinkTypeSoft }
func (m *Link) IsExternal() bool { return m.LinkType == LinkTypeExternal }

// NewHardLink returns a link named name pointing at an object header.
func NewHardLink(name string, addr uint64) *Link {
	return &Link{Version: 1, LinkType: LinkTypeHard, Name: name, ObjectAddress: addr}
}

// NewSoftLink returns a link named name that resolves through target.
func NewSoftLink(name, target string) *Link {
	return &Link{Version: 1, LinkType: LinkTypeSoft, Name: name, SoftLinkValue: target}
}

func parseLink(data []byte, r *binary.Reader) (*Link, error) {
	br := body(data, r)
	head, err := br.ReadBytes(2)
	if err != nil {
		return nil, truncated("link", err)
	}
	link := &Link{Version: head[0]}
	flags := head[1]

	if flags&0x08 != 0 {
		t, err := br.ReadUint8()
		if err != nil {
			return nil, truncated("link type", err)
		}
		link.LinkType = LinkType(t)
	}
	if flags&0x04 != 0 {
		if link.CreationOrder, err = br.ReadUint64(); err != nil {
			return nil, truncated("link creation order", err)
		}
	}
	if flags&0x10 != 0 {
		if link.Charset, err = br.ReadUint8(); err != nil {
			return nil, truncated("link charset", err)
		}
	}
	nameLen, err := br.ReadUintN(1 << (flags & 0x03))
	if err != nil {
		return nil, truncated("link name length", err)
	}
	name, err := br.ReadBytes(int(nameLen))
	if err != nil {
		return nil, truncated("link name", err)
	}
	link.Name = string(name)

	switch link.LinkType {
	case LinkTypeHard:
		if link.ObjectAddress, err = br.ReadOffset(); err != nil {
			return nil, truncated("hard link address", err)
		}
	case LinkTypeSoft:
		value, err := readLinkValue(br)
		if err != nil {
			return nil, err
		}
		link.SoftLinkValue = string(value)
	case LinkTypeExternal:
		value, err := readLinkValue(br)
		if err != nil {
			return nil, err
		}
		if len(value) < 2 {
			return nil, fmt.Errorf("external link value too short")
		}
		parts := bytes.SplitN(value[1:], []byte{0}, 3)
		link.ExternalFile = string(parts[0])
		if len(parts) > 1 {
			link.ExternalPath = string(parts[1])
		}
	}
	return link, nil
}

func readLinkValue(br *binary.Reader) ([]byte, error) {
	n, err := br.ReadUint16()
	if err != nil {
		return nil, truncated("link value length", err)
	}
	value, err := br.ReadBytes(int(n))
	if err != nil {
		return nil, truncated("link value", err)
	}
	return value, nil
}

func (m *Link) flags() (uint8, int) {
	var flags uint8
	width := 1
	switch n := len(m.Name); {
	case n > 0xFFFF:
		flags, width = 2, 4
	case n > 0xFF:
		flags, width = 1, 2
	}
	if m.LinkType != LinkTypeHard {
		flags |= 0x08
	}
	if m.Charset != 0 {
		flags |= 0x10
	}
	return flags, width
}

// Serialize writes a version 1 link message. External links are not written.
func (m *Link) Serialize(w *binary.Writer) error {
	flags, width := m.flags()
	if err := w.WriteBytes([]byte{1, flags}); err != nil {
		return err
	}
	if flags&0x08 != 0 {
		if err := w.WriteUint8(uint8(m.LinkType)); err != nil {
			return err
		}
	}
	if flags&0x10 != 0 {
		if err := w.WriteUint8(m.Charset); err != nil {
			return err
		}
	}
	if err := w.WriteUintN(uint64(len(m.Name)), width); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(m.Name)); err != nil {
		return err
	}
	switch m.LinkType {
	case LinkTypeHard:
		return w.WriteOffset(m.ObjectAddress)
	case LinkTypeSoft:
		if err := w.WriteUint16(uint16(len(m.SoftLinkValue))); err != nil {
			return err
		}
		return w.WriteBytes([]byte(m.SoftLinkValue))
	}
	return fmt.Errorf("serializing link type %d not supported", m.LinkType)
}

func (m *Link) SerializedSize(w *binary.Writer) int {
	flags, width := m.flags()
	size := 2 + width + len(m.Name)
	if flags&0x08 != 0 {
		size++
	}
	if flags&0x10 != 0 {
		size++
	}
	if m.LinkType == LinkTypeSoft {
		return size + 2 + len(m.SoftLinkValue)
	}
	return size + w.OffsetSize()
}
