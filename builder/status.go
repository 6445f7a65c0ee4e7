package builder

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Status writes the distribution of indexed positions over depth and
// remain buckets. With csvOut it emits (depth, remain, count) rows;
// otherwise a per-depth summary with the grand total.
func (b *Builder) Status(w io.Writer, csvOut bool) error {
	n := b.board.Size()
	if err := b.db.CheckSize(n); err != nil {
		return err
	}
	var cw *csv.Writer
	if csvOut {
		cw = csv.NewWriter(w)
		if err := cw.Write([]string{"depth", "remain", "count"}); err != nil {
			return err
		}
	}
	total := 0
	for depth := 0; depth <= b.board.MaxDepth(); depth++ {
		depthCount := 0
		for remain := 1; remain <= b.board.MaxRemain(); remain++ {
			keys, err := b.db.BucketKeys(n, depth, remain)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				continue
			}
			depthCount += len(keys)
			if cw != nil {
				if err := cw.Write([]string{
					strconv.Itoa(depth), strconv.Itoa(remain), strconv.Itoa(len(keys)),
				}); err != nil {
					return err
				}
			}
		}
		total += depthCount
		if cw == nil && depthCount > 0 {
			fmt.Fprintf(w, "depth %d: %d positions\n", depth, depthCount)
		}
	}
	if cw != nil {
		cw.Flush()
		return cw.Error()
	}
	fmt.Fprintf(w, "%d positions in n=%d\n", total, n)
	return nil
}
