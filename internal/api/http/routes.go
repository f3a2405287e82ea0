package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/maksum011/prakiraan-cuaca/internal/dashboard"
	"github.com/maksum011/prakiraan-cuaca/internal/location"
	"github.com/maksum011/prakiraan-cuaca/internal/store"
	"github.com/maksum011/prakiraan-cuaca/internal/weather"
)

var validate = validator.New()

// Handler holds the dependencies of the HTTP API.
type Handler struct {
	sessions *store.MemoryStore
	builder  *dashboard.Builder
	service  *weather.Service

	// maxWait caps how long a dashboard request may block on a device fix.
	maxWait time.Duration
}

func NewHandler(sessions *store.MemoryStore, builder *dashboard.Builder, service *weather.Service, maxWait time.Duration) *Handler {
	return &Handler{
		sessions: sessions,
		builder:  builder,
		service:  service,
		maxWait:  maxWait,
	}
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, h *Handler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "prakiraan-cuaca",
			"provider": h.service.ProviderName(),
		})
	})

	v1 := app.Group("/api/v1")

	v1.Post("/sessions", h.createSession)
	v1.Get("/sessions/:id", h.getSession)
	v1.Post("/sessions/:id/position", h.reportPosition)
	v1.Get("/sessions/:id/dashboard", h.sessionDashboard)
	v1.Post("/sessions/:id/search", h.sessionSearch)

	v1.Get("/dashboard", h.dashboard)

	v1.Get("/weather/current", h.current)
	v1.Get("/weather/forecast", h.forecast)
}

// ErrorHandler renders every error as {error, message} JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func (h *Handler) createSession(c *fiber.Ctx) error {
	sess := h.sessions.Create()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": sess.ID})
}

func (h *Handler) getSession(c *fiber.Ctx) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(sess.State())
}

// positionRequest is the device's answer: coordinates, or the reason it has none.
type positionRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required_without=Error,required_with=Longitude"`
	Longitude *float64 `json:"longitude" validate:"required_without=Error,required_with=Latitude"`
	Error     string   `json:"error" validate:"max=200"`
}

func (h *Handler) reportPosition(c *fiber.Ctx) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	var req positionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	// Range checks happen during resolution so a bad fix becomes a notice.
	if req.Latitude != nil && req.Longitude != nil {
		sess.ReportFix(weather.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude})
	} else {
		sess.ReportFixError(req.Error)
	}
	return c.JSON(sess.State())
}

func (h *Handler) sessionDashboard(c *fiber.Ctx) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	wait, err := h.parseWait(c.Query("wait"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	view := h.builder.Build(c.UserContext(), location.Request{
		Device:  waitingLocator(sess, wait),
		Current: sess.Location(),
	})
	sess.SetLocation(view.Location)
	return c.JSON(view)
}

type searchRequest struct {
	City string `json:"city" validate:"max=100"`
}

func (h *Handler) sessionSearch(c *fiber.Ctx) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	sess.SetSearchText(req.City)
	view := h.builder.Build(c.UserContext(), location.Request{
		Device:  waitingLocator(sess, 0),
		Search:  &req.City,
		Current: sess.Location(),
	})
	sess.SetLocation(view.Location)
	return c.JSON(view)
}

// dashboard is the stateless variant: the query string carries everything
// a session would otherwise hold.
func (h *Handler) dashboard(c *fiber.Ctx) error {
	var req location.Request

	// Unusable coordinates make the device a failed source, not a bad request.
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	switch {
	case latStr != "" || lonStr != "":
		coords, err := parseCoordinates(latStr, lonStr)
		if err != nil {
			req.Device = location.Fix{Err: err.Error()}
		} else {
			req.Device = location.Fix{Coordinates: coords}
		}
	case c.Query("error") != "":
		req.Device = location.Fix{Err: c.Query("error")}
	}

	if c.Context().QueryArgs().Has("city") {
		city := c.Query("city")
		req.Search = &city
	}

	return c.JSON(h.builder.Build(c.UserContext(), req))
}

// currentResponse adds the icon URL to the conditions.
type currentResponse struct {
	weather.CurrentConditions
	IconURL string `json:"iconUrl,omitempty"`
}

func (h *Handler) current(c *fiber.Ctx) error {
	q, err := parseWeatherQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	cur, err := h.service.Current(c.UserContext(), q)
	if err != nil {
		return fetchError(err)
	}
	return c.JSON(currentResponse{CurrentConditions: cur, IconURL: cur.IconURL()})
}

func (h *Handler) forecast(c *fiber.Ctx) error {
	q, err := parseWeatherQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	fc, err := h.service.Forecast(c.UserContext(), q)
	if err != nil {
		return fetchError(err)
	}
	return c.JSON(fiber.Map{
		"query":    q,
		"forecast": fc,
	})
}

func (h *Handler) lookup(c *fiber.Ctx) (*store.Session, error) {
	sess, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "failed to load session")
	}
	return sess, nil
}

// parseWait reads the requested wait, capped at maxWait. Empty means no wait.
func (h *Handler) parseWait(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.New("wait must be a non-negative duration such as 2s")
	}
	if d > h.maxWait {
		d = h.maxWait
	}
	return d, nil
}

// waitingLocator lets the resolver wait up to d for the session's device.
func waitingLocator(sess *store.Session, d time.Duration) location.DeviceLocator {
	return location.DeviceLocatorFunc(func(ctx context.Context) (weather.Coordinates, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return sess.Locate(ctx)
	})
}

func fetchError(err error) error {
	switch {
	case errors.Is(err, weather.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, weather.Describe(err))
	case errors.Is(err, weather.ErrForecastUnsupported):
		return fiber.NewError(fiber.StatusNotImplemented, weather.Describe(err))
	default:
		return fiber.NewError(fiber.StatusBadGateway, weather.Describe(err))
	}
}

type cityQuery struct {
	City string `validate:"required,max=100"`
}

// parseWeatherQuery accepts lat+lon, or city when no coordinates are given.
func parseWeatherQuery(c *fiber.Ctx) (weather.Query, error) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr != "" || lonStr != "" {
		coords, err := parseCoordinates(latStr, lonStr)
		if err != nil {
			return weather.Query{}, err
		}
		if err := coords.Validate(); err != nil {
			return weather.Query{}, err
		}
		if err := validate.Struct(coords); err != nil {
			return weather.Query{}, err
		}
		return weather.ByCoordinates(coords), nil
	}

	q := cityQuery{City: strings.TrimSpace(c.Query("city"))}
	if err := validate.Struct(q); err != nil {
		return weather.Query{}, errors.New("lat and lon, or city, are required")
	}
	return weather.ByCity(q.City), nil
}

func parseCoordinates(latStr, lonStr string) (weather.Coordinates, error) {
	if latStr == "" || lonStr == "" {
		return weather.Coordinates{}, errors.New("lat and lon must be given together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("invalid lat: %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("invalid lon: %q", lonStr)
	}
	return weather.Coordinates{Latitude: lat, Longitude: lon}, nil
}
