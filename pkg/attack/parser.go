package attack

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sidechan/rsa-timing/pkg/bigint"
)

// SampleParser defines the interface for reading timing samples from
// various sources.
type SampleParser interface {
	// ParseSamples reads samples from a source and returns them in
	// file order.
	ParseSamples(source string) ([]Sample, error)
}

// CSVParser parses samples from CSV files.
type CSVParser struct {
	MessageCol  string // Column name for the message (default: "message")
	DurationCol string // Column name for nanosecond durations (default: "duration")
	StepCol     string // Column name for the debug step (default: "step4")
}

// ParseSamples parses samples from a CSV file.
//
// Expected format: a header row naming the columns, then one row per
// sample with a decimal message, a nonnegative integer duration in
// nanoseconds, and an optional step value of 1 or 2.
func (p *CSVParser) ParseSamples(csvFile string) ([]Sample, error) {
	file, err := os.Open(csvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	messageCol := p.MessageCol
	if messageCol == "" {
		messageCol = "message"
	}
	durationCol := p.DurationCol
	if durationCol == "" {
		durationCol = "duration"
	}
	stepCol := p.StepCol
	if stepCol == "" {
		stepCol = "step4"
	}

	messageIdx, durationIdx, stepIdx := -1, -1, -1
	for i, col := range header {
		switch col {
		case messageCol:
			messageIdx = i
		case durationCol:
			durationIdx = i
		case stepCol:
			stepIdx = i
		}
	}
	if messageIdx == -1 || durationIdx == -1 {
		return nil, fmt.Errorf("%w: missing required columns %q or %q",
			ErrMalformedInput, messageCol, durationCol)
	}

	samples := make([]Sample, 0)
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		row++

		if messageIdx >= len(record) || durationIdx >= len(record) {
			return nil, fmt.Errorf("%w: row %d: too few fields", ErrMalformedInput, row)
		}
		sample, err := parseSample(record[messageIdx], record[durationIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedInput, row, err)
		}
		if stepIdx >= 0 && stepIdx < len(record) && record[stepIdx] != "" {
			step, err := strconv.Atoi(record[stepIdx])
			if err != nil || (step != 1 && step != 2) {
				return nil, fmt.Errorf("%w: row %d: bad step value %q", ErrMalformedInput, row, record[stepIdx])
			}
			sample.Step = step
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// JSONParser parses samples from JSON files.
type JSONParser struct {
	MessageField  string // Field name for the message (default: "message")
	DurationField string // Field name for the duration (default: "duration")
	StepField     string // Field name for the debug step (default: "step4")
}

// ParseSamples parses samples from a JSON file.
//
// Expected format:
//
//	[
//	  {"message": "1234", "duration": 96000000, "step4": 1},
//	  {"message": "777", "duration": 94000000}
//	]
func (p *JSONParser) ParseSamples(jsonFile string) ([]Sample, error) {
	file, err := os.Open(jsonFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.UseNumber() // Preserve large numbers as json.Number instead of float64

	var items []map[string]interface{}
	if err := decoder.Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	messageField := p.MessageField
	if messageField == "" {
		messageField = "message"
	}
	durationField := p.DurationField
	if durationField == "" {
		durationField = "duration"
	}
	stepField := p.StepField
	if stepField == "" {
		stepField = "step4"
	}

	samples := make([]Sample, 0, len(items))
	for i, item := range items {
		msgVal, ok := item[messageField]
		if !ok {
			return nil, fmt.Errorf("%w: entry %d: missing %q", ErrMalformedInput, i, messageField)
		}
		durVal, ok := item[durationField]
		if !ok {
			return nil, fmt.Errorf("%w: entry %d: missing %q", ErrMalformedInput, i, durationField)
		}
		sample, err := parseSample(jsonString(msgVal), jsonString(durVal))
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedInput, i, err)
		}
		if stepVal, ok := item[stepField]; ok {
			step, err := strconv.Atoi(jsonString(stepVal))
			if err != nil || (step != 1 && step != 2) {
				return nil, fmt.Errorf("%w: entry %d: bad step value %v", ErrMalformedInput, i, stepVal)
			}
			sample.Step = step
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// parseSample builds a Sample from its textual message and duration.
func parseSample(message, duration string) (Sample, error) {
	m, err := bigint.FromString(message)
	if err != nil {
		return Sample{}, fmt.Errorf("message %q: %v", message, err)
	}
	ns, err := strconv.ParseInt(duration, 10, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("duration %q: %v", duration, err)
	}
	if ns < 0 {
		return Sample{}, fmt.Errorf("duration %q: negative", duration)
	}
	return Sample{Message: m, Duration: time.Duration(ns)}, nil
}

// jsonString renders a decoded JSON scalar back to text for parsing.
func jsonString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return string(x)
	default:
		return fmt.Sprintf("%v", v)
	}
}
