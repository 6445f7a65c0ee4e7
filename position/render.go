package position

import (
	"slices"
	"strings"
)

// PieceChars are the glyphs used when rendering the two sides.
var PieceChars = [2]string{"▷", "▲"}

// Render draws the board with box characters, one square per cell.
func (b Board) Render(p Position) string {
	var sb strings.Builder
	hor := "・" + strings.Repeat("━・", b.n)
	sb.WriteString(hor)
	sb.WriteByte('\n')
	for row := 0; row < b.n; row++ {
		sb.WriteString("┃")
		for col := 0; col < b.n; col++ {
			sq := row*b.n + col
			switch {
			case slices.Contains(p[First], sq):
				sb.WriteString(PieceChars[First])
			case slices.Contains(p[Second], sq):
				sb.WriteString(PieceChars[Second])
			default:
				sb.WriteString("　")
			}
			sb.WriteString("┃")
		}
		sb.WriteByte('\n')
		sb.WriteString(hor)
		sb.WriteByte('\n')
	}
	return sb.String()
}
