// Command radius-export filters a listings CSV to the properties within a
// radius of one reference property and writes them to an xlsx workbook.
//
//	radius-export -in listings.csv -ref "Loft 5B" -radius 2 -unit km -out nearby.xlsx
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/propertypulse/propertypulse/internal/adapters/csvfile"
	"github.com/propertypulse/propertypulse/internal/adapters/xlsx"
	"github.com/propertypulse/propertypulse/internal/core/domain"
	"github.com/propertypulse/propertypulse/internal/core/usecases"
	"github.com/propertypulse/propertypulse/internal/pkg/logging"
)

type options struct {
	in     string
	ref    string
	radius float64
	unit   string
	out    string
}

func main() {
	logging.Setup(os.Getenv("LOG_LEVEL"), "text")

	var opts options
	flag.StringVar(&opts.in, "in", "", "Input CSV with Name, Latitude and Longitude columns")
	flag.StringVar(&opts.ref, "ref", "", "Reference property: exact Name, or 1-based row number")
	flag.Float64Var(&opts.radius, "radius", domain.DefaultRadius, "Search radius")
	flag.StringVar(&opts.unit, "unit", string(domain.DefaultUnit), "Radius unit: km or miles")
	flag.StringVar(&opts.out, "out", "", "Output xlsx (default PropertyPulse_Export_<date>.xlsx)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n, err := run(ctx, opts, time.Now())
	if err != nil {
		slog.Error("radius export failed", "error", err)
		os.Exit(1)
	}
	slog.Info("radius export written", "rows", n, "out", opts.out)
}

// run performs one export and returns the number of rows written. An empty
// opts.out is filled in with the default filename.
func run(ctx context.Context, opts options, now time.Time) (int, error) {
	if opts.in == "" || opts.ref == "" {
		return 0, errors.New("-in and -ref are required")
	}
	unit, err := domain.ParseUnit(opts.unit)
	if err != nil {
		return 0, err
	}
	if opts.radius < 0 {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidRadius, opts.radius)
	}

	parser := csvfile.NewParser()
	if !parser.Accepts(opts.in, "") {
		return 0, domain.ErrUnsupportedFileType
	}
	ds, err := loadDataset(ctx, parser, opts.in, now)
	if err != nil {
		return 0, err
	}

	ref, err := findReference(ds, opts.ref)
	if err != nil {
		return 0, err
	}
	if !ref.HasValidCoordinates() {
		return 0, fmt.Errorf("reference %q has no usable coordinates", ref.Name)
	}

	matches := usecases.FilterByDistance(ds.Records, &ref, opts.radius, unit)
	slog.Debug("filtered", "rows", ds.Len(), "valid", ds.ValidCount(), "matches", len(matches))

	writer := xlsx.NewWriter()
	if opts.out == "" {
		opts.out = usecases.ExportFilename(now, writer.Extension())
	}
	if err := writeFile(ctx, writer, opts.out, ds.Headers, matches); err != nil {
		return 0, err
	}
	return len(matches), nil
}

func loadDataset(ctx context.Context, parser *csvfile.Parser, path string, now time.Time) (*domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := parser.Parse(ctx, f)
	if err != nil {
		return nil, err
	}
	return domain.NewDataset(table.Rows, table.Headers, filepath.Base(path), now)
}

// findReference matches ref against Name first, then as a 1-based row number.
func findReference(ds *domain.Dataset, ref string) (domain.Record, error) {
	for _, r := range ds.Records {
		if r.Name == ref {
			return r, nil
		}
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if r, err := ds.Record(n - 1); err == nil {
			return r, nil
		}
	}
	return domain.Record{}, fmt.Errorf("no property named or numbered %q", ref)
}

func writeFile(ctx context.Context, w *xlsx.Writer, path string, headers []string, records []domain.Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return w.Write(ctx, f, headers, records)
}
