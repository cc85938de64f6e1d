package attack

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteCSV emits samples in the interchange format: a header row, then
// message,duration,step4 per sample. Durations are integer
// nanoseconds; a zero Step writes an empty field.
func WriteCSV(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"message", "duration", "step4"}); err != nil {
		return err
	}
	for _, s := range samples {
		step := ""
		if s.Step != 0 {
			step = strconv.Itoa(s.Step)
		}
		rec := []string{
			s.Message.String(),
			strconv.FormatInt(int64(s.Duration), 10),
			step,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes samples to path, creating or truncating it.
func WriteCSVFile(path string, samples []Sample) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteCSV(file, samples); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
