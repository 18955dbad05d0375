package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/brokerage-insights/internal/domain"
)

// Fetcher downloads remote sources. Implementations must wrap fs.ErrNotExist
// when the object does not exist.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Options controls how sources are decoded.
type Options struct {
	// Delimiter for delimited text. Zero means ','.
	Delimiter rune
}

// Loader reads transaction tables from local files or gs:// objects.
type Loader struct {
	fetcher Fetcher
	opts    Options
}

// New creates a Loader. fetcher may be nil when only local sources are used.
func New(fetcher Fetcher, opts Options) *Loader {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &Loader{fetcher: fetcher, opts: opts}
}

// Load reads source into a table with typed columns. The header is validated
// before any row is parsed.
func (l *Loader) Load(ctx context.Context, source string) (*domain.Table, error) {
	data, err := l.read(ctx, source)
	if err != nil {
		return nil, err
	}

	var records [][]string
	if strings.EqualFold(path.Ext(source), ".xlsx") {
		records, err = readXLSX(data)
	} else {
		records, err = l.readDelimited(data)
	}
	if err != nil {
		return nil, fmt.Errorf("Load: decoding %s: %w", source, err)
	}

	table, err := parseRecords(records)
	if err != nil {
		return nil, fmt.Errorf("Load: %s: %w", source, err)
	}
	return table, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "gs://") {
		if l.fetcher == nil {
			return nil, fmt.Errorf("Load: no storage client configured for %s", source)
		}
		data, err := l.fetcher.Fetch(ctx, source)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
		}
		if err != nil {
			return nil, fmt.Errorf("Load: fetching %s: %w", source, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(source)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}
	if err != nil {
		return nil, fmt.Errorf("Load: reading %s: %w", source, err)
	}
	return data, nil
}

func (l *Loader) readDelimited(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = l.opts.Delimiter
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// readXLSX returns the rows of the first sheet.
func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}
