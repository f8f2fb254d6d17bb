package sources

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ParseCSV reads a comma-delimited export. The first record is the header.
// Quoted fields may contain commas, which is how decimal-comma amounts
// survive in these files.
func ParseCSV(data []byte) (*RawTable, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	headerLine, _ := r.FieldPos(0)

	// encoding/csv skips empty lines, so row numbers come from the reader.
	var rows [][]string
	var nums []int
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		line, _ := r.FieldPos(0)
		rows = append(rows, rec)
		nums = append(nums, line-headerLine)
	}
	return newRawTable(FormatCSV, header, rows, nums), nil
}
