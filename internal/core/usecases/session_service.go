package usecases

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/propertypulse/propertypulse/internal/core/domain"
	"github.com/propertypulse/propertypulse/internal/core/ports"
	"github.com/propertypulse/propertypulse/internal/pkg/logging"
	"github.com/propertypulse/propertypulse/internal/pkg/metrics"
	"github.com/propertypulse/propertypulse/internal/pkg/telemetry"
)

var tracer = otel.Tracer("github.com/propertypulse/propertypulse/internal/core/usecases")

const (
	DefaultPreviewRows = 5
	DefaultSearchLimit = 10
	DefaultExportTTL   = 10 * time.Minute

	exportKeyPrefix = "export:"
)

// SessionService owns every session state transition. All mutations run under
// the repository's per-session lock.
type SessionService struct {
	sessions  ports.SessionRepository
	parser    ports.TabularParser
	writer    ports.SpreadsheetWriter
	exports   ports.ExportStore    // optional
	events    ports.EventPublisher // optional
	exportTTL time.Duration
	now       func() time.Time
}

// NewSessionService creates a new SessionService. exports and events may be nil.
func NewSessionService(
	sessions ports.SessionRepository,
	parser ports.TabularParser,
	writer ports.SpreadsheetWriter,
	exports ports.ExportStore,
	events ports.EventPublisher,
	exportTTL time.Duration,
) *SessionService {
	if exportTTL <= 0 {
		exportTTL = DefaultExportTTL
	}
	return &SessionService{
		sessions:  sessions,
		parser:    parser,
		writer:    writer,
		exports:   exports,
		events:    events,
		exportTTL: exportTTL,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// Create starts a new session with no data.
func (s *SessionService) Create(ctx context.Context) (domain.SessionSummary, error) {
	now := s.now()
	sess := domain.NewSession(uuid.NewString(), now)
	if err := s.sessions.Create(ctx, sess); err != nil {
		return domain.SessionSummary{}, fmt.Errorf("create session: %w", err)
	}
	metrics.SessionsCreated.Inc()
	s.publish(ctx, sess.ID, domain.EventSessionCreated, nil)
	return sess.Summary(now), nil
}

// Get returns the session summary.
func (s *SessionService) Get(ctx context.Context, id string) (domain.SessionSummary, error) {
	var sum domain.SessionSummary
	now := s.now()
	err := s.sessions.View(ctx, id, func(sess *domain.Session) error {
		sum = sess.Summary(now)
		return nil
	})
	return sum, err
}

// Delete drops the session and everything it holds.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	return s.sessions.Delete(ctx, id)
}

// LoadDataset parses an upload and swaps it in as the session's dataset.
// Parsing happens before the session lock is taken; concurrent uploads are
// last-writer-wins. On failure the session keeps its previous data and
// carries an error notification.
func (s *SessionService) LoadDataset(ctx context.Context, id, filename, contentType string, r io.Reader) (domain.SessionSummary, error) {
	ctx, span := tracer.Start(ctx, "SessionService.LoadDataset", trace.WithAttributes(
		attribute.String(telemetry.AttrSessionID, id),
		attribute.String("file.name", filename),
	))
	defer span.End()

	if err := s.sessions.View(ctx, id, func(*domain.Session) error { return nil }); err != nil {
		return domain.SessionSummary{}, err
	}

	ds, err := s.parseDataset(ctx, filename, contentType, r)
	if err != nil {
		metrics.DatasetsLoaded.WithLabelValues("rejected").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.FromContext(ctx).Info("dataset rejected", "session", id, "source", filename, "error", err)
		s.notifyError(ctx, id, domain.EventDatasetRejected, err)
		return domain.SessionSummary{}, err
	}

	var sum domain.SessionSummary
	err = s.mutate(ctx, id, func(sess *domain.Session, now time.Time) error {
		sess.ReplaceDataset(ds)
		sess.Notice = domain.NewNotification(domain.NotifySuccess,
			fmt.Sprintf("Successfully loaded %d properties", ds.Len()), now)
		sum = sess.Summary(now)
		return nil
	})
	if err != nil {
		return domain.SessionSummary{}, err
	}

	valid := ds.ValidCount()
	metrics.DatasetsLoaded.WithLabelValues("accepted").Inc()
	metrics.DatasetRows.Observe(float64(ds.Len()))
	metrics.RowsWithoutCoordinates.Add(float64(ds.Len() - valid))
	span.SetAttributes(attribute.Int(telemetry.AttrRows, ds.Len()))

	logging.FromContext(ctx).Info("dataset loaded",
		"session", id, "source", filename, "rows", ds.Len(), "valid_rows", valid)
	s.publish(ctx, id, domain.EventDatasetLoaded, map[string]any{
		"source":        filename,
		"records":       ds.Len(),
		"valid_records": valid,
	})
	return sum, nil
}

func (s *SessionService) parseDataset(ctx context.Context, filename, contentType string, r io.Reader) (*domain.Dataset, error) {
	if !s.parser.Accepts(filename, contentType) {
		return nil, domain.ErrUnsupportedFileType
	}
	table, err := s.parser.Parse(ctx, r)
	if err != nil {
		return nil, err
	}
	return domain.NewDataset(table.Rows, table.Headers, filename, s.now())
}

// ChooseReference makes the record at index the base property. The selection
// is left alone.
func (s *SessionService) ChooseReference(ctx context.Context, id string, index int) (domain.SessionSummary, error) {
	var sum domain.SessionSummary
	var name string
	err := s.mutate(ctx, id, func(sess *domain.Session, now time.Time) error {
		rec, err := sess.Dataset.Record(index)
		if err != nil {
			return err
		}
		i := index
		sess.Reference = &i
		name = rec.Name
		sess.Notice = domain.NewNotification(domain.NotifyInfo, "Base property set to "+rec.Name, now)
		sum = sess.Summary(now)
		return nil
	})
	if err != nil {
		return domain.SessionSummary{}, err
	}
	s.publish(ctx, id, domain.EventReferenceChanged, map[string]any{"index": index, "name": name})
	return sum, nil
}

// ClearReference unsets the base property.
func (s *SessionService) ClearReference(ctx context.Context, id string) (domain.SessionSummary, error) {
	var sum domain.SessionSummary
	err := s.mutate(ctx, id, func(sess *domain.Session, now time.Time) error {
		sess.Reference = nil
		sum = sess.Summary(now)
		return nil
	})
	if err != nil {
		return domain.SessionSummary{}, err
	}
	s.publish(ctx, id, domain.EventReferenceChanged, map[string]any{"index": nil})
	return sum, nil
}

// SetRadius changes the search radius, in the session's current unit.
func (s *SessionService) SetRadius(ctx context.Context, id string, radius float64) (domain.SessionSummary, error) {
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
		return domain.SessionSummary{}, fmt.Errorf("%w: %v", domain.ErrInvalidRadius, radius)
	}
	return s.changeView(ctx, id, func(sess *domain.Session) { sess.Radius = radius })
}

// SetUnit switches between km and miles. The radius value is kept as is.
func (s *SessionService) SetUnit(ctx context.Context, id string, unit domain.Unit) (domain.SessionSummary, error) {
	if !unit.Valid() {
		return domain.SessionSummary{}, fmt.Errorf("%w: %q", domain.ErrInvalidUnit, unit)
	}
	return s.changeView(ctx, id, func(sess *domain.Session) { sess.Unit = unit })
}

func (s *SessionService) changeView(ctx context.Context, id string, apply func(*domain.Session)) (domain.SessionSummary, error) {
	var sum domain.SessionSummary
	err := s.mutate(ctx, id, func(sess *domain.Session, now time.Time) error {
		apply(sess)
		sum = sess.Summary(now)
		return nil
	})
	if err != nil {
		return domain.SessionSummary{}, err
	}
	s.publish(ctx, id, domain.EventRadiusChanged, map[string]any{
		"radius": sum.Radius,
		"unit":   string(sum.Unit),
	})
	return sum, nil
}

// ToggleSelection adds the record at index to the selection, or removes the
// member sharing its coordinate identity. It reports whether it was added.
func (s *SessionService) ToggleSelection(ctx context.Context, id string, index int) (bool, error) {
	var added bool
	var rec domain.Record
	var size int
	err := s.mutate(ctx, id, func(sess *domain.Session, _ time.Time) error {
		var err error
		rec, err = sess.Dataset.Record(index)
		if err != nil {
			return err
		}
		added = sess.Selection.Toggle(rec)
		size = sess.Selection.Len()
		return nil
	})
	if err != nil {
		return false, err
	}

	action := "remove"
	if added {
		action = "add"
	}
	metrics.SelectionChanges.WithLabelValues(action).Inc()
	s.publishSelection(ctx, id, action, size, rec.Identity())
	return added, nil
}

// RemoveSelection drops the member with the given coordinate identity. Absent
// identities are a no-op.
func (s *SessionService) RemoveSelection(ctx context.Context, id string, identity domain.CoordinateIdentity) (bool, error) {
	var removed bool
	var size int
	err := s.mutate(ctx, id, func(sess *domain.Session, _ time.Time) error {
		removed = sess.Selection.Remove(domain.Record{Latitude: identity.Latitude, Longitude: identity.Longitude})
		size = sess.Selection.Len()
		return nil
	})
	if err != nil {
		return false, err
	}
	if removed {
		metrics.SelectionChanges.WithLabelValues("remove").Inc()
		s.publishSelection(ctx, id, "remove", size, identity)
	}
	return removed, nil
}

// ClearSelection empties the selection.
func (s *SessionService) ClearSelection(ctx context.Context, id string) error {
	err := s.mutate(ctx, id, func(sess *domain.Session, now time.Time) error {
		sess.Selection.Clear()
		sess.Notice = domain.NewNotification(domain.NotifyInfo, "Cleared all selected properties", now)
		return nil
	})
	if err != nil {
		return err
	}
	metrics.SelectionChanges.WithLabelValues("clear").Inc()
	s.publish(ctx, id, domain.EventSelectionChanged, map[string]any{"action": "clear", "selected": 0})
	return nil
}

func (s *SessionService) publishSelection(ctx context.Context, id, action string, size int, identity domain.CoordinateIdentity) {
	s.publish(ctx, id, domain.EventSelectionChanged, map[string]any{
		"action":    action,
		"selected":  size,
		"latitude":  identity.Latitude,
		"longitude": identity.Longitude,
	})
}

// Selection returns the selected records in insertion order.
func (s *SessionService) Selection(ctx context.Context, id string) ([]domain.Record, error) {
	var out []domain.Record
	err := s.sessions.View(ctx, id, func(sess *domain.Session) error {
		out = sess.Selection.Records()
		return nil
	})
	return out, err
}

// Proximity returns the live filter output: every row when no reference is
// chosen, otherwise the rows within the radius with their distances. The
// reference, radius and unit are read under the same lock as the results.
func (s *SessionService) Proximity(ctx context.Context, id string) (domain.ProximityResult, error) {
	ctx, span := tracer.Start(ctx, "SessionService.Proximity",
		trace.WithAttributes(attribute.String(telemetry.AttrSessionID, id)))
	defer span.End()

	var out domain.ProximityResult
	err := s.sessions.View(ctx, id, func(sess *domain.Session) error {
		start := time.Now()
		out = domain.ProximityResult{
			Reference: sess.ReferenceRecord(),
			Radius:    sess.Radius,
			Unit:      sess.Unit,
			Results:   matchesFor(sess),
		}
		metrics.ProximityDuration.Observe(time.Since(start).Seconds())
		return nil
	})
	if err != nil {
		return domain.ProximityResult{}, err
	}
	out.Count = len(out.Results)
	metrics.ProximityEvaluations.WithLabelValues("list").Inc()
	span.SetAttributes(attribute.Int(telemetry.AttrMatches, out.Count))
	return out, nil
}

// MapView builds the display contract for the map collaborator.
func (s *SessionService) MapView(ctx context.Context, id string) (*domain.MapView, error) {
	var view *domain.MapView
	err := s.sessions.View(ctx, id, func(sess *domain.Session) error {
		view = buildMapView(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ProximityEvaluations.WithLabelValues("map").Inc()
	return view, nil
}

// Records returns one page of the stored dataset and the total row count.
func (s *SessionService) Records(ctx context.Context, id string, offset, limit int) ([]domain.Record, int, error) {
	var page []domain.Record
	var total int
	err := s.sessions.View(ctx, id, func(sess *domain.Session) error {
		if sess.Dataset == nil {
			return domain.ErrNoDataset
		}
		total = sess.Dataset.Len()
		if offset < 0 {
			offset = 0
		}
		if offset >= total || limit <= 0 {
			page = []domain.Record{}
			return nil
		}
		end := min(offset+limit, total)
		page = append([]domain.Record(nil), sess.Dataset.Records[offset:end]...)
		return nil
	})
	return page, total, err
}

// Preview returns the first n rows with the headers.
func (s *SessionService) Preview(ctx context.Context, id string, n int) (domain.Preview, error) {
	if n <= 0 {
		n = DefaultPreviewRows
	}
	rows, total, err := s.Records(ctx, id, 0, n)
	if err != nil {
		return domain.Preview{}, err
	}
	var headers []string
	err = s.sessions.View(ctx, id, func(sess *domain.Session) error {
		if sess.Dataset != nil {
			headers = append([]string(nil), sess.Dataset.Headers...)
		}
		return nil
	})
	return domain.Preview{Headers: headers, Rows: rows, Total: total}, err
}

// Search matches query case-insensitively against names and returns at most
// limit rows. An empty query returns the first rows.
func (s *SessionService) Search(ctx context.Context, id, query string, limit int) ([]domain.RecordMatch, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	var out []domain.RecordMatch
	err := s.sessions.View(ctx, id, func(sess *domain.Session) error {
		if sess.Dataset == nil {
			return domain.ErrNoDataset
		}
		out = searchRecords(sess, query, limit)
		return nil
	})
	return out, err
}

// Export writes the selection to a spreadsheet. When store is set the file is
// also kept in the export store for later download.
func (s *SessionService) Export(ctx context.Context, id string, store bool) (*domain.Export, error) {
	ctx, span := tracer.Start(ctx, "SessionService.Export",
		trace.WithAttributes(attribute.String(telemetry.AttrSessionID, id)))
	defer span.End()

	if store && s.exports == nil {
		return nil, domain.ErrExportsDisabled
	}

	var headers []string
	var records []domain.Record
	err := s.sessions.View(ctx, id, func(sess *domain.Session) error {
		if sess.Selection.Len() == 0 {
			return domain.ErrEmptySelection
		}
		records = sess.Selection.Records()
		headers = exportHeaders(sess.Dataset, records)
		return nil
	})
	if errors.Is(err, domain.ErrEmptySelection) {
		s.notifyError(ctx, id, domain.EventNotificationShown, err)
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrSelected, len(records)))

	var buf bytes.Buffer
	if err := s.writer.Write(ctx, &buf, headers, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("write export: %w", err)
	}

	now := s.now()
	exp := &domain.Export{
		ID:          uuid.NewString(),
		Filename:    ExportFilename(now, s.writer.Extension()),
		ContentType: s.writer.ContentType(),
		Rows:        len(records),
		CreatedAt:   now,
		Data:        buf.Bytes(),
	}

	if store {
		if err := s.storeExport(ctx, exp); err != nil {
			return nil, err
		}
	}
	metrics.ExportsCreated.WithLabelValues(fmt.Sprint(store)).Inc()

	err = s.mutate(ctx, id, func(sess *domain.Session, now time.Time) error {
		sess.Notice = domain.NewNotification(domain.NotifySuccess,
			fmt.Sprintf("Exported %d properties to %s", exp.Rows, exp.Filename), now)
		return nil
	})
	if err != nil {
		logging.FromContext(ctx).Warn("set export notification", "session", id, "export", exp.ID, "error", err)
	}
	s.publish(ctx, id, domain.EventExportCreated, map[string]any{
		"export_id": exp.ID,
		"filename":  exp.Filename,
		"rows":      exp.Rows,
		"stored":    store,
	})
	return exp, nil
}

func (s *SessionService) storeExport(ctx context.Context, exp *domain.Export) error {
	key := exportKeyPrefix + exp.ID
	if err := s.exports.Set(ctx, key+":name", []byte(exp.Filename), s.exportTTL); err != nil {
		return fmt.Errorf("store export: %w", err)
	}
	if err := s.exports.Set(ctx, key+":data", exp.Data, s.exportTTL); err != nil {
		return fmt.Errorf("store export: %w", err)
	}
	return nil
}

// FetchExport loads a previously stored export.
func (s *SessionService) FetchExport(ctx context.Context, exportID string) (*domain.Export, error) {
	if s.exports == nil {
		return nil, domain.ErrExportNotFound
	}
	key := exportKeyPrefix + exportID
	name, err := s.exports.Get(ctx, key+":name")
	if err != nil {
		metrics.CacheMisses.WithLabelValues("export").Inc()
		return nil, fmt.Errorf("fetch export %s: %w", exportID, err)
	}
	data, err := s.exports.Get(ctx, key+":data")
	if err != nil {
		metrics.CacheMisses.WithLabelValues("export").Inc()
		return nil, fmt.Errorf("fetch export %s: %w", exportID, err)
	}
	metrics.CacheHits.WithLabelValues("export").Inc()
	return &domain.Export{
		ID:          exportID,
		Filename:    string(name),
		ContentType: s.writer.ContentType(),
		Data:        data,
	}, nil
}

// ExportFilename is PropertyPulse_Export_<YYYY-MM-DD><ext>.
func ExportFilename(at time.Time, ext string) string {
	return "PropertyPulse_Export_" + at.Format("2006-01-02") + ext
}

// Notification returns the session's notification while it is still visible.
func (s *SessionService) Notification(ctx context.Context, id string) (*domain.Notification, error) {
	var n *domain.Notification
	now := s.now()
	err := s.sessions.View(ctx, id, func(sess *domain.Session) error {
		if sess.Notice.Active(now) {
			cp := *sess.Notice
			n = &cp
		}
		return nil
	})
	return n, err
}

// DismissNotification hides the current notification before it expires.
func (s *SessionService) DismissNotification(ctx context.Context, id string) error {
	return s.sessions.Update(ctx, id, func(sess *domain.Session) error {
		sess.Notice = nil
		return nil
	})
}

// mutate runs fn under the session lock and stamps UpdatedAt when fn succeeds.
func (s *SessionService) mutate(ctx context.Context, id string, fn func(sess *domain.Session, now time.Time) error) error {
	return s.sessions.Update(ctx, id, func(sess *domain.Session) error {
		now := s.now()
		if err := fn(sess, now); err != nil {
			return err
		}
		sess.UpdatedAt = now
		return nil
	})
}

// notifyError leaves the session's data untouched and shows err to the user.
func (s *SessionService) notifyError(ctx context.Context, id string, kind domain.EventKind, err error) {
	msg := domain.UserMessage(err)
	uerr := s.sessions.Update(ctx, id, func(sess *domain.Session) error {
		sess.Notice = domain.NewNotification(domain.NotifyError, msg, s.now())
		return nil
	})
	if uerr != nil {
		logging.FromContext(ctx).Warn("set error notification", "session", id, "error", uerr)
		return
	}
	s.publish(ctx, id, kind, map[string]any{"message": msg})
}

func (s *SessionService) publish(ctx context.Context, id string, kind domain.EventKind, payload map[string]any) {
	if s.events == nil {
		return
	}
	ev := &domain.SessionEvent{SessionID: id, Kind: kind, At: s.now(), Payload: payload}
	if err := s.events.PublishSessionEvent(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("publish session event", "session", id, "kind", kind, "error", err)
	}
}
