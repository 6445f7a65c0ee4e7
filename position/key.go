package position

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Key encodes (sorted side-0 squares, sorted side-1 squares, turn) into the
// canonical lookup string, e.g. "[[0,3],[7,8],0]". Two positions with the
// same piece sets and turn always produce identical keys. The board size is
// not part of the key; callers track it alongside.
func Key(p Position, turn int) string {
	var sb strings.Builder
	sb.WriteByte('[')
	writeSide(&sb, p[First])
	sb.WriteByte(',')
	writeSide(&sb, p[Second])
	sb.WriteByte(',')
	sb.WriteString(strconv.Itoa(turn))
	sb.WriteByte(']')
	return sb.String()
}

func writeSide(sb *strings.Builder, side []int) {
	sorted := slices.Clone(side)
	slices.Sort(sorted)
	sb.WriteByte('[')
	for i, sq := range sorted {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(sq))
	}
	sb.WriteByte(']')
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (Position, int, error) {
	var parts [3]json.RawMessage
	if err := json.Unmarshal([]byte(key), &parts); err != nil {
		return Position{}, 0, fmt.Errorf("malformed position key %q: %w", key, err)
	}
	var p Position
	for side := First; side <= Second; side++ {
		if err := json.Unmarshal(parts[side], &p[side]); err != nil {
			return Position{}, 0, fmt.Errorf("malformed position key %q: %w", key, err)
		}
		if p[side] == nil {
			p[side] = []int{}
		}
	}
	var turn int
	if err := json.Unmarshal(parts[2], &turn); err != nil {
		return Position{}, 0, fmt.Errorf("malformed position key %q: %w", key, err)
	}
	if turn != First && turn != Second {
		return Position{}, 0, fmt.Errorf("position key %q: turn must be 0 or 1", key)
	}
	return p, turn, nil
}

// DrawKeys3 lists the 3×3 positions rewritten to draws after a solve.
// Backward induction alone leaves short cycles through these positions
// that perfect DB-backed play would repeat forever; recording them as
// draws breaks the cycles.
func DrawKeys3() []string {
	return []string{"[[3,8],[4,6],1]", "[[2,3],[4,6],1]", "[[2,3],[4,8],1]"}
}

// LastMove derives a human-readable move ("5-6", or "3-X" for an exit)
// from two adjacent canonical keys.
func LastMove(prevKey, currentKey string) (string, error) {
	prev, _, err := ParseKey(prevKey)
	if err != nil {
		return "", err
	}
	current, _, err := ParseKey(currentKey)
	if err != nil {
		return "", err
	}
	side := First
	if slices.Equal(prev[First], current[First]) {
		side = Second
	}
	if len(prev[side]) > len(current[side]) {
		for _, sq := range prev[side] {
			if !slices.Contains(current[side], sq) {
				return fmt.Sprintf("%d-X", sq), nil
			}
		}
	}
	from, to := -1, -1
	for _, sq := range prev[side] {
		if !slices.Contains(current[side], sq) {
			from = sq
		}
	}
	for _, sq := range current[side] {
		if !slices.Contains(prev[side], sq) {
			to = sq
		}
	}
	if from < 0 || to < 0 {
		return "", fmt.Errorf("keys %s and %s are not one move apart", prevKey, currentKey)
	}
	return fmt.Sprintf("%d-%d", from, to), nil
}
