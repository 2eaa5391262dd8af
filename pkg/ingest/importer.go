// Package ingest bulk-loads sensor readings from semicolon separated CSV
// uploads. Bad rows are skipped and reported; they never abort the import.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"riego/entities"
	"riego/pkg/errors"
	"riego/pkg/features"
	"riego/pkg/logger"
	"riego/pkg/metrics"
	"riego/pkg/timeseries"
)

// DefaultBatchSize is how many readings are committed per transaction.
const DefaultBatchSize = 10000

var (
	ErrEmptyFile      = errors.NewStd("csv file is empty")
	ErrNoDataRows     = errors.NewStd("csv file has a header but no data rows")
	ErrNoSensors      = errors.NewStd("no sensors registered")
	ErrMissingColumns = errors.NewStd("csv header is missing required columns")
)

// FlushError reports the batch whose commit failed. Batches before it stay
// committed; rows after it were not processed.
type FlushError struct {
	Batch int // 1-based
	Row   int // first data row of the batch, 1-based
	Cause error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush batch %d (from row %d): %v", e.Batch, e.Row, e.Cause)
}

func (e *FlushError) Unwrap() error { return e.Cause }

// ReadingWriter commits one batch atomically.
type ReadingWriter interface {
	CreateBatch(ctx context.Context, rs []entities.Reading) error
}

// SensorSource lists the sensors rows may be assigned to.
type SensorSource interface {
	IDs(ctx context.Context) ([]uint, error)
}

// Picker chooses a sensor for rows that do not name one.
type Picker interface {
	Pick(ids []uint) uint
}

type randPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker returns a uniform Picker. Seed 0 draws a random seed.
func NewPicker(seed uint64) Picker {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &randPicker{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *randPicker) Pick(ids []uint) uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ids[p.rng.IntN(len(ids))]
}

// Skip is one row that was not imported.
type Skip struct {
	Row    int    `json:"fila"`
	Reason string `json:"motivo"`
}

// Report summarizes one import.
type Report struct {
	ImportID  string `json:"import_id"`
	Imported  int    `json:"importadas"`
	Processed int    `json:"procesadas"`
	Skipped   []Skip `json:"omitidas"`
	Batches   int    `json:"lotes"`
	Encoding  string `json:"codificacion"`
	Warnings  int    `json:"advertencias"`
}

type Options struct {
	BatchSize int
	PeekSize  int
	Picker    Picker
	Mirror    timeseries.Mirror
	Metrics   *metrics.Metrics
	Log       *slog.Logger
}

type Importer struct {
	readings ReadingWriter
	sensors  SensorSource
	catalog  *features.Catalog
	opts     Options
	log      *slog.Logger
}

func New(readings ReadingWriter, sensors SensorSource, catalog *features.Catalog, opts Options) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.PeekSize <= 0 {
		opts.PeekSize = DefaultPeekSize
	}
	if opts.Picker == nil {
		opts.Picker = NewPicker(0)
	}
	if opts.Mirror == nil {
		opts.Mirror = timeseries.Nop{}
	}
	if catalog == nil {
		catalog = features.DefaultCatalog()
	}
	return &Importer{
		readings: readings,
		sensors:  sensors,
		catalog:  catalog,
		opts:     opts,
		log:      logger.OrDiscard(opts.Log),
	}
}

type batch struct {
	seq      int
	firstRow int
	rows     []entities.Reading
}

// Import streams r into the datastore. The returned report is non-nil
// whenever parsing started, including on flush failure and cancellation, and
// then holds what was committed.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Report, error) {
	start := time.Now()
	rep := &Report{ImportID: uuid.NewString(), Skipped: []Skip{}}
	log := im.log.With("import_id", rep.ImportID)

	dec, enc, err := decode(r, im.opts.PeekSize)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryFileParsing).Component("ingest").Build()
	}
	rep.Encoding = enc

	cr := csv.NewReader(dec)
	cr.Comma = ';'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) || (err == nil && isBlank(head)) {
		return nil, errors.New(ErrEmptyFile).Category(errors.CategoryStructural).Component("ingest").Build()
	}
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryFileParsing).Component("ingest").Build()
	}
	cols, err := parseHeader(head)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryStructural).Component("ingest").
			Context("header", strings.Join(head, ";")).Build()
	}

	sensorIDs, err := im.sensors.IDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(sensorIDs) == 0 {
		return nil, errors.New(ErrNoSensors).Category(errors.CategoryStructural).Component("ingest").Build()
	}
	known := make(map[uint]struct{}, len(sensorIDs))
	for _, id := range sensorIDs {
		known[id] = struct{}{}
	}

	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan batch, 1)

	// parser: owns rep.Processed, rep.Skipped, rep.Warnings
	g.Go(func() error {
		defer close(batches)
		cur := batch{seq: 1, firstRow: 1, rows: make([]entities.Reading, 0, im.opts.BatchSize)}
		send := func() error {
			if len(cur.rows) == 0 {
				return nil
			}
			select {
			case batches <- cur:
			case <-gctx.Done():
				return gctx.Err()
			}
			cur = batch{seq: cur.seq + 1, rows: make([]entities.Reading, 0, im.opts.BatchSize)}
			return nil
		}
		for row := 1; ; row++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := cr.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				var pe *csv.ParseError
				if !errors.As(err, &pe) {
					// the stream itself failed; batches already handed off still commit
					return errors.New(err).Category(errors.CategoryFileParsing).Component("ingest").
						Context("row", row).Build()
				}
				// a broken record skips the row; the reader resyncs on the next line
				rep.Processed++
				im.skip(log, rep, row, fmt.Sprintf("registro CSV inválido: %v", err))
				continue
			}
			if isBlank(rec) {
				row--
				continue
			}
			rep.Processed++
			res := im.buildRow(row, cols, rec, known, sensorIDs)
			if !res.OK() {
				im.skip(log, rep, row, res.Reason)
				continue
			}
			if len(cur.rows) == 0 {
				cur.firstRow = row
			}
			if len(res.Warnings) > 0 {
				rep.Warnings += len(res.Warnings)
				log.Debug("row stored with NULL fields", "row", row, "fields", res.Warnings)
			}
			cur.rows = append(cur.rows, res.Reading)
			if len(cur.rows) >= im.opts.BatchSize {
				if err := send(); err != nil {
					return err
				}
			}
		}
		return send()
	})

	// flusher: owns rep.Imported, rep.Batches
	g.Go(func() error {
		for b := range batches {
			if err := im.readings.CreateBatch(gctx, b.rows); err != nil {
				return &FlushError{Batch: b.seq, Row: b.firstRow, Cause: err}
			}
			rep.Imported += len(b.rows)
			rep.Batches++
			im.opts.Metrics.RecordImportBatch()
			log.Debug("batch committed", "batch", b.seq, "rows", len(b.rows))
			if err := im.opts.Mirror.WriteReadings(gctx, b.rows); err != nil {
				log.Warn("timeseries mirror failed", "batch", b.seq, "error", err)
			}
		}
		return nil
	})

	err = g.Wait()
	elapsed := time.Since(start)
	im.opts.Metrics.RecordImportRows(rep.Imported, len(rep.Skipped))
	im.opts.Metrics.RecordImportDuration(elapsed)

	if err != nil {
		var fe *FlushError
		switch {
		case ctx.Err() != nil:
			log.Warn("import cancelled", "imported", rep.Imported, "processed", rep.Processed)
			return rep, errors.New(ctx.Err()).Category(errors.CategoryCancellation).Component("ingest").
				Context("import_id", rep.ImportID).Build()
		case errors.As(err, &fe):
			log.Error("import aborted", "batch", fe.Batch, "row", fe.Row, "imported", rep.Imported, "error", fe.Cause)
			return rep, errors.New(fe).Category(errors.CategoryDatabase).Component("ingest").
				Context("import_id", rep.ImportID).Timing("import", elapsed).Build()
		default:
			log.Error("import aborted", "processed", rep.Processed, "imported", rep.Imported, "error", err)
			return rep, errors.New(err).Component("ingest").Context("import_id", rep.ImportID).Build()
		}
	}

	if rep.Processed == 0 {
		return nil, errors.New(ErrNoDataRows).Category(errors.CategoryStructural).Component("ingest").Build()
	}

	log.Info("import finished",
		"imported", rep.Imported,
		"processed", rep.Processed,
		"skipped", len(rep.Skipped),
		"batches", rep.Batches,
		"encoding", rep.Encoding,
		"duration_ms", elapsed.Milliseconds())
	return rep, nil
}

func (im *Importer) skip(log *slog.Logger, rep *Report, row int, reason string) {
	rep.Skipped = append(rep.Skipped, Skip{Row: row, Reason: reason})
	log.Warn("row skipped", "row", row, "reason", reason)
}

// RowResult is the outcome of one data row: a reading to store, or the
// reason it was skipped.
type RowResult struct {
	Row     int
	Reading entities.Reading
	Reason  string
	// Warnings names fields that were present but unreadable and stored as NULL.
	Warnings []string
}

func (r RowResult) OK() bool { return r.Reason == "" }

func (im *Importer) buildRow(row int, cols header, rec []string, known map[uint]struct{}, sensorIDs []uint) RowResult {
	p, reason := parseRow(cols, rec)
	if reason != "" {
		return RowResult{Row: row, Reason: reason}
	}
	crop, err := im.catalog.Resolve(p.Crop)
	if err != nil {
		return RowResult{Row: row, Reason: fmt.Sprintf("cultivo '%s' no reconocido", p.Crop)}
	}

	var sensorID uint
	if p.SensorID != nil {
		if _, ok := known[*p.SensorID]; !ok {
			return RowResult{Row: row, Reason: fmt.Sprintf("sensor %d no registrado", *p.SensorID)}
		}
		sensorID = *p.SensorID
	} else {
		sensorID = im.opts.Picker.Pick(sensorIDs)
	}

	return RowResult{
		Row: row,
		Reading: entities.Reading{
			SensorID:           sensorID,
			CropID:             crop.ID,
			Date:               p.Date,
			SoilMoisture:       p.SoilMoisture,
			Temperature:        p.Temperature,
			Precipitation:      p.Precipitation,
			Wind:               p.Wind,
			SolarRadiation:     p.SolarRadiation,
			DroughtIndex:       p.DroughtIndex,
			SoilPH:             p.SoilPH,
			OrganicMatter:      p.OrganicMatter,
			WaterStressIndex:   p.StressIndex,
			HydricDeficit:      p.HydricDeficit,
			Evapotranspiration: p.Evapotranspiration,
			Lat:                p.Lat,
			Lng:                p.Lng,
			IrrigationMethod:   p.IrrigationMethod,
			CropStage:          p.Stage,
			NeedsIrrigation:    p.NeedsIrrigation,
		},
		Warnings: p.Warnings,
	}
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
