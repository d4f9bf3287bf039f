// Package layout holds the static seating geometry of the house. It is
// pure data: which sections exist, which rows each section has, and how
// many seats each block contributes to a row. Seat numbers run across
// blocks within a row, so block "center" continues where "left" stopped.
package layout

import "seatmap/internal/model"

// Block is one physical block of a section. SeatsPerRow maps a row
// letter to the number of seats this block contributes to that row.
type Block struct {
	Name        string
	SeatsPerRow map[string]uint32
}

// Section groups rows and blocks under a pricing tier. Rows and Blocks
// are ordered; the order drives seat numbering.
type Section struct {
	Name   string
	Rows   []string
	Blocks []Block
}

// Sections is the full house configuration. Row W of the silver
// "centeragain" block has zero seats; that is intentional, the block
// narrows to nothing at the back.
var Sections = []Section{
	{
		Name: "gold",
		Rows: []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"},
		Blocks: []Block{
			{Name: "left", SeatsPerRow: map[string]uint32{
				"A": 15, "B": 15, "C": 16, "D": 21, "E": 22, "F": 22,
				"G": 23, "H": 23, "I": 23, "J": 23, "K": 23, "L": 23,
			}},
			{Name: "center", SeatsPerRow: map[string]uint32{
				"A": 12, "B": 12, "C": 14, "D": 16, "E": 18, "F": 18,
				"G": 20, "H": 21, "I": 22, "J": 22, "K": 22, "L": 23,
			}},
			{Name: "right", SeatsPerRow: map[string]uint32{
				"A": 16, "B": 16, "C": 16, "D": 23, "E": 23, "F": 23,
				"G": 23, "H": 23, "I": 23, "J": 23, "K": 23, "L": 23,
			}},
		},
	},
	{
		Name: "silver",
		Rows: []string{"M", "N", "O", "P", "Q", "R", "S", "T", "U", "V", "W"},
		Blocks: []Block{
			{Name: "left", SeatsPerRow: map[string]uint32{
				"M": 21, "N": 21, "O": 20, "P": 18, "Q": 16, "R": 15,
				"S": 13, "T": 11, "U": 8, "V": 6, "W": 3,
			}},
			{Name: "center", SeatsPerRow: map[string]uint32{
				"M": 11, "N": 12, "O": 12, "P": 12, "Q": 13, "R": 13,
				"S": 14, "T": 14, "U": 14, "V": 14, "W": 6,
			}},
			{Name: "centeragain", SeatsPerRow: map[string]uint32{
				"M": 11, "N": 12, "O": 12, "P": 12, "Q": 13, "R": 13,
				"S": 14, "T": 14, "U": 14, "V": 14, "W": 0,
			}},
			{Name: "right", SeatsPerRow: map[string]uint32{
				"M": 20, "N": 20, "O": 20, "P": 20, "Q": 18, "R": 16,
				"S": 14, "T": 12, "U": 8, "V": 6, "W": 5,
			}},
		},
	},
	{
		Name: "bronze",
		Rows: []string{"A", "B", "C", "D", "E", "F", "G"},
		Blocks: []Block{
			{Name: "left", SeatsPerRow: map[string]uint32{
				"A": 15, "B": 14, "C": 13, "D": 12, "E": 11, "F": 8, "G": 8,
			}},
			{Name: "center", SeatsPerRow: map[string]uint32{
				"A": 25, "B": 25, "C": 25, "D": 25, "E": 25, "F": 22, "G": 14,
			}},
			{Name: "right", SeatsPerRow: map[string]uint32{
				"A": 15, "B": 14, "C": 13, "D": 12, "E": 11, "F": 8, "G": 8,
			}},
		},
	},
}

// AllSeats enumerates every seat key in the house, in section order,
// row by row, numbering seats with a counter that continues across the
// blocks of the row.
func AllSeats() []model.SeatKey {
	var keys []model.SeatKey
	for _, sec := range Sections {
		for _, row := range sec.Rows {
			num := uint32(1)
			for _, blk := range sec.Blocks {
				count := blk.SeatsPerRow[row]
				for i := uint32(0); i < count; i++ {
					keys = append(keys, model.SeatKey{
						Section: sec.Name,
						Row:     row,
						Number:  num,
						Block:   blk.Name,
					})
					num++
				}
			}
		}
	}
	return keys
}

// Contains reports whether the key addresses a seat that exists in the
// configured geometry, including the block boundary check implied by
// cross-block numbering.
func Contains(k model.SeatKey) bool {
	for _, sec := range Sections {
		if sec.Name != k.Section {
			continue
		}
		start := uint32(1)
		for _, blk := range sec.Blocks {
			count := blk.SeatsPerRow[k.Row]
			if blk.Name == k.Block {
				return k.Number >= start && k.Number < start+count
			}
			start += count
		}
		return false
	}
	return false
}
