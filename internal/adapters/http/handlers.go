package http

import (
	"math"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/propertypulse/propertypulse/internal/adapters/mapjson"
	"github.com/propertypulse/propertypulse/internal/core/domain"
	"github.com/propertypulse/propertypulse/internal/core/usecases"
)

// Radius slider bounds exposed to clients.
const (
	MinRadius  = 0.1
	MaxRadius  = 10.0
	RadiusStep = 0.1
)

// CreateSessionHandler starts a new browsing session.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sum, err := deps.Sessions.Create(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/sessions/" + sum.ID)
		return c.Status(fiber.StatusCreated).JSON(sum)
	}
}

// GetSessionHandler returns the session summary.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sum, err := deps.Sessions.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(sum)
	}
}

// DeleteSessionHandler drops a session.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// UploadDatasetHandler loads the multipart field "file" as the session's dataset.
func UploadDatasetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return errBadRequest(c, "multipart field \"file\" is required")
		}
		f, err := fh.Open()
		if err != nil {
			return errBadRequest(c, "cannot read uploaded file")
		}
		defer f.Close()

		sum, err := deps.Sessions.LoadDataset(c.UserContext(), c.Params("id"),
			fh.Filename, fh.Header.Get(fiber.HeaderContentType), f)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(sum)
	}
}

type indexedRecord struct {
	Index  int           `json:"index"`
	Record domain.Record `json:"record"`
}

// ListRecordsHandler pages through the stored dataset, invalid rows included.
func ListRecordsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := pageParams(c, 100, 500)

		records, total, err := deps.Sessions.Records(c.UserContext(), c.Params("id"), offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}

		data := make([]indexedRecord, len(records))
		for i, r := range records {
			data[i] = indexedRecord{Index: offset + i, Record: r}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: data, Pagination: pg})
	}
}

// PreviewHandler returns the first rows of the dataset.
func PreviewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows := c.QueryInt("rows", usecases.DefaultPreviewRows)
		if rows <= 0 || rows > 100 {
			rows = usecases.DefaultPreviewRows
		}
		p, err := deps.Sessions.Preview(c.UserContext(), c.Params("id"), rows)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(p)
	}
}

// SearchRecordsHandler finds reference candidates by name.
func SearchRecordsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if len(query) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		limit := c.QueryInt("limit", usecases.DefaultSearchLimit)
		if limit <= 0 || limit > 100 {
			limit = usecases.DefaultSearchLimit
		}

		found, err := deps.Sessions.Search(c.UserContext(), c.Params("id"), query, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(found)
	}
}

type indexRequest struct {
	Index *int `json:"index"`
}

func parseIndex(c *fiber.Ctx) (int, bool) {
	var req indexRequest
	if err := c.BodyParser(&req); err != nil || req.Index == nil {
		return 0, false
	}
	return *req.Index, true
}

// SetReferenceHandler chooses the base property by row index.
func SetReferenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, ok := parseIndex(c)
		if !ok {
			return errBadRequest(c, "body must be {\"index\": <row>}")
		}
		sum, err := deps.Sessions.ChooseReference(c.UserContext(), c.Params("id"), index)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(sum)
	}
}

// ClearReferenceHandler unsets the base property.
func ClearReferenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sum, err := deps.Sessions.ClearReference(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(sum)
	}
}

type radiusRequest struct {
	Radius *float64 `json:"radius"`
	Unit   *string  `json:"unit"`
}

// SetRadiusHandler changes the radius and/or the unit. The radius must lie
// within the slider range and is snapped to its step.
func SetRadiusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req radiusRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Radius == nil && req.Unit == nil {
			return errBadRequest(c, "radius or unit is required")
		}

		var unit domain.Unit
		if req.Unit != nil {
			u, err := domain.ParseUnit(*req.Unit)
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			unit = u
		}
		var radius float64
		if req.Radius != nil {
			radius = snapRadius(*req.Radius)
			if math.IsNaN(*req.Radius) || radius < MinRadius || radius > MaxRadius {
				return errBadRequest(c, "radius must be between 0.1 and 10")
			}
		}

		ctx := c.UserContext()
		id := c.Params("id")
		var sum domain.SessionSummary
		var err error
		if req.Unit != nil {
			if sum, err = deps.Sessions.SetUnit(ctx, id, unit); err != nil {
				return errFromDomain(c, err)
			}
		}
		if req.Radius != nil {
			if sum, err = deps.Sessions.SetRadius(ctx, id, radius); err != nil {
				return errFromDomain(c, err)
			}
		}
		return c.JSON(sum)
	}
}

func snapRadius(r float64) float64 {
	const steps = 1 / RadiusStep
	return math.Round(r*steps) / steps
}

// ProximityHandler returns the rows within the radius of the reference, or
// every row when none is chosen.
func ProximityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := deps.Sessions.Proximity(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	}
}

// MapHandler returns the map view as GeoJSON, or the raw view with ?format=view.
func MapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := deps.Sessions.MapView(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		if c.Query("format") == "view" {
			return c.JSON(view)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		data, err := mapjson.FromMapView(view).MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.Send(data)
	}
}

// SelectionHandler lists the selected properties in selection order.
func SelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		records, err := deps.Sessions.Selection(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"count": len(records), "records": records})
	}
}

// ToggleSelectionHandler adds or removes the row at index.
func ToggleSelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, ok := parseIndex(c)
		if !ok {
			return errBadRequest(c, "body must be {\"index\": <row>}")
		}
		added, err := deps.Sessions.ToggleSelection(c.UserContext(), c.Params("id"), index)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"index": index, "selected": added})
	}
}

// RemoveSelectionHandler removes a member by its raw coordinates.
func RemoveSelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var identity domain.CoordinateIdentity
		if err := c.BodyParser(&identity); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		removed, err := deps.Sessions.RemoveSelection(c.UserContext(), c.Params("id"), identity)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"removed": removed})
	}
}

// ClearSelectionHandler empties the selection.
func ClearSelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.ClearSelection(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ExportHandler returns the selection as an xlsx attachment. With ?store=true
// the file is kept for later download and its id is returned instead.
func ExportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		store := c.QueryBool("store", false)
		exp, err := deps.Sessions.Export(c.UserContext(), c.Params("id"), store)
		if err != nil {
			return errFromDomain(c, err)
		}
		if store {
			c.Location("/v1/exports/" + exp.ID)
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{
				"export_id":    exp.ID,
				"filename":     exp.Filename,
				"rows":         exp.Rows,
				"download_url": "/v1/exports/" + url.PathEscape(exp.ID),
			})
		}
		return sendExport(c, exp)
	}
}

// DownloadExportHandler serves a stored export.
func DownloadExportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		exp, err := deps.Sessions.FetchExport(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return sendExport(c, exp)
	}
}

func sendExport(c *fiber.Ctx, exp *domain.Export) error {
	c.Attachment(exp.Filename)
	c.Set(fiber.HeaderContentType, exp.ContentType)
	return c.Send(exp.Data)
}

// NotificationHandler returns the visible notification, or 204 when none.
func NotificationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := deps.Sessions.Notification(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		if n == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(n)
	}
}

// DismissNotificationHandler hides the notification.
func DismissNotificationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.DismissNotification(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DistanceHandler computes the distance between two points without a session.
func DistanceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var from, to domain.GeoPoint
		var ok bool
		if from.Lat, ok = queryCoord(c, "from_lat", 90); !ok {
			return errBadRequest(c, "from_lat must be a number between -90 and 90")
		}
		if from.Lon, ok = queryCoord(c, "from_lon", 180); !ok {
			return errBadRequest(c, "from_lon must be a number between -180 and 180")
		}
		if to.Lat, ok = queryCoord(c, "to_lat", 90); !ok {
			return errBadRequest(c, "to_lat must be a number between -90 and 90")
		}
		if to.Lon, ok = queryCoord(c, "to_lon", 180); !ok {
			return errBadRequest(c, "to_lon must be a number between -180 and 180")
		}
		unit, err := domain.ParseUnit(c.Query("unit"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		d := usecases.Distance(from, to, unit)
		return c.JSON(fiber.Map{
			"from":     from,
			"to":       to,
			"unit":     unit,
			"distance": d,
			"display":  strconv.FormatFloat(d, 'f', 2, 64),
		})
	}
}

func queryCoord(c *fiber.Ctx, key string, limit float64) (float64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < -limit || v > limit {
		return 0, false
	}
	return v, true
}
