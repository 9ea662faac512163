// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

// Package btreetype holds the static lookup tables for motr format record
// types, B-tree types and node shapes.
package btreetype

import "fmt"

// TreeType identifies which storage-engine B-tree a node belongs to.
type TreeType uint8

const (
	TreeInvalid            TreeType = 0x01
	TreeBallocGroupExtents TreeType = 0x02
	TreeBallocGroupDesc    TreeType = 0x03
	TreeEmapMapping        TreeType = 0x04
	TreeCASCtg             TreeType = 0x05
	TreeCOBNamespace       TreeType = 0x06
	TreeCOBObjectIndex     TreeType = 0x07
	TreeCOBFileattrBasic   TreeType = 0x08
	TreeCOBFileattrEA      TreeType = 0x09
	TreeCOBFileattrOMG     TreeType = 0x0a
	TreeCOBBytecount       TreeType = 0x0b
	TreeConfDB             TreeType = 0x0c
	TreeUTKVOps            TreeType = 0x0d
	TreeNR                 TreeType = 0x0e
)

var treeTypeNames = map[TreeType]string{
	TreeInvalid:            "M0_BT_INVALID",
	TreeBallocGroupExtents: "M0_BT_BALLOC_GROUP_EXTENTS",
	TreeBallocGroupDesc:    "M0_BT_BALLOC_GROUP_DESC",
	TreeEmapMapping:        "M0_BT_EMAP_EM_MAPPING",
	TreeCASCtg:             "M0_BT_CAS_CTG",
	TreeCOBNamespace:       "M0_BT_COB_NAMESPACE",
	TreeCOBObjectIndex:     "M0_BT_COB_OBJECT_INDEX",
	TreeCOBFileattrBasic:   "M0_BT_COB_FILEATTR_BASIC",
	TreeCOBFileattrEA:      "M0_BT_COB_FILEATTR_EA",
	TreeCOBFileattrOMG:     "M0_BT_COB_FILEATTR_OMG",
	TreeCOBBytecount:       "M0_BT_COB_BYTECOUNT",
	TreeConfDB:             "M0_BT_CONFDB",
	TreeUTKVOps:            "M0_BT_UT_KV_OPS",
	TreeNR:                 "M0_BT_NR",
}

// TreeTypes returns every known tree type in code order.
func TreeTypes() []TreeType {
	var res []TreeType
	for t := TreeInvalid; t <= TreeNR; t++ {
		res = append(res, t)
	}
	return res
}

// TreeTypeName returns the M0_BT_* name of code.
func TreeTypeName(code uint8) (string, bool) {
	name, ok := treeTypeNames[TreeType(code)]
	return name, ok
}

// ParseTreeType returns the tree type with the given M0_BT_* name.
func ParseTreeType(name string) (TreeType, bool) {
	for t, n := range treeTypeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Known reports whether t is in the table.
func (t TreeType) Known() bool {
	_, ok := treeTypeNames[t]
	return ok
}

// IsEmap reports whether nodes of t carry EMAP key/record pairs.
func (t TreeType) IsEmap() bool {
	return t == TreeEmapMapping
}

func (t TreeType) String() string {
	if name, ok := treeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%#02x)", uint8(t))
}

// NodeShape describes key/value size fixedness within a node.
type NodeShape uint32

const (
	ShapeFF   NodeShape = 1 // fixed key, fixed value
	ShapeFKVV NodeShape = 2 // fixed key, variable value
	ShapeVKFV NodeShape = 3 // variable key, fixed value
	ShapeVKVV NodeShape = 4 // variable key, variable value
)

var nodeShapeNames = map[NodeShape]string{
	ShapeFF:   "FF",
	ShapeFKVV: "FKVV",
	ShapeVKFV: "VKFV",
	ShapeVKVV: "VKVV",
}

// NodeShapeOf returns the shape for a node-type code.
func NodeShapeOf(code uint32) (NodeShape, bool) {
	s := NodeShape(code)
	_, ok := nodeShapeNames[s]
	return s, ok
}

func (s NodeShape) String() string {
	if name, ok := nodeShapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint32(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s NodeShape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MarshalText implements encoding.TextMarshaler.
func (t TreeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// WrongEntry record type codes mark deliberately invalid records.
const (
	RecordWrongEntry    uint8 = 0x22
	RecordWrongEntryAlt uint8 = 0x44
)

var recordTypeNames = map[uint8]string{
	0x01:                "M0_FORMAT_TYPE_RPC_PACKET",
	0x02:                "M0_FORMAT_TYPE_RPC_ITEM",
	0x03:                "M0_FORMAT_TYPE_BE_BTREE",
	0x04:                "M0_FORMAT_TYPE_BE_BNODE",
	0x05:                "M0_FORMAT_TYPE_BE_EMAP_KEY",
	0x06:                "M0_FORMAT_TYPE_BE_EMAP_REC",
	0x07:                "M0_FORMAT_TYPE_BE_EMAP",
	0x08:                "M0_FORMAT_TYPE_BE_LIST",
	0x09:                "M0_FORMAT_TYPE_BE_SEG_HDR",
	0x0a:                "M0_FORMAT_TYPE_BALLOC",
	0x0b:                "M0_FORMAT_TYPE_ADDB2_FRAME_HEADER",
	0x0c:                "M0_FORMAT_TYPE_STOB_AD_0TYPE_REC",
	0x0d:                "M0_FORMAT_TYPE_STOB_AD_DOMAIN",
	0x0e:                "M0_FORMAT_TYPE_COB_NSREC",
	0x0f:                "M0_FORMAT_TYPE_BALLOC_GROUP_DESC",
	0x10:                "M0_FORMAT_TYPE_EXT",
	RecordWrongEntry:    "WRONG_ENTRY",
	RecordWrongEntryAlt: "WRONG_ENTRY",
}

// RecordTypeName returns the M0_FORMAT_TYPE_* name of code.
func RecordTypeName(code uint8) (string, bool) {
	name, ok := recordTypeNames[code]
	return name, ok
}

// RecordTypeCount returns the number of entries in the record type table.
func RecordTypeCount() int {
	return len(recordTypeNames)
}
