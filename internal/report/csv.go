package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes each section as a " -- Title --" line, a CSV header,
// the rows, and two blank lines.
func WriteCSV(w io.Writer, sections []Section) error {
	bw := bufio.NewWriter(w)

	for _, s := range sections {
		if _, err := fmt.Fprintf(bw, " -- %s --\n", s.Title); err != nil {
			return err
		}

		cw := csv.NewWriter(bw)
		if err := cw.Write(s.Header); err != nil {
			return err
		}
		for _, row := range s.Rows {
			if err := cw.Write(formatRow(row)); err != nil {
				return err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}

		if _, err := bw.WriteString("\n\n"); err != nil {
			return err
		}
	}

	return bw.Flush()
}
