package bloodliner

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	sessionName = "bloodliner"
	keyToken    = "token"
	keyDay      = "day"
)

func currentSession(c echo.Context) (*sessions.Session, error) {
	return session.Get(sessionName, c)
}

// LoginHandler redirects to the oauth provider's credential acceptance page
func LoginHandler(c *oauth2.Config, state string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		u := c.AuthCodeURL(state)
		return ctx.Redirect(http.StatusFound, u)
	}
}

// LogoutHandler forgets the oauth token
func LogoutHandler(baseURL string) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := currentSession(c)
		if err != nil {
			return err
		}
		delete(sess.Values, keyToken)
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			return err
		}
		return c.Redirect(http.StatusFound, baseURL)
	}
}

// AuthCallbackHandler receives the callback from the oauth provider with the credentials
func AuthCallbackHandler(cfg *oauth2.Config, state, baseURL string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s := c.FormValue("state"); s != state {
			return echo.NewHTTPError(http.StatusBadRequest, "State invalid")
		}
		code := c.FormValue("code")
		if code == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "Code not found")
		}
		token, err := cfg.Exchange(c.Request().Context(), code)
		if err != nil {
			return err
		}
		val, err := json.Marshal(token)
		if err != nil {
			return err
		}
		sess, err := currentSession(c)
		if err != nil {
			return err
		}
		sess.Values[keyToken] = string(val)
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			return err
		}
		return c.Redirect(http.StatusFound, baseURL)
	}
}

func sessionToken(c echo.Context) (*oauth2.Token, error) {
	sess, err := currentSession(c)
	if err != nil {
		return nil, err
	}
	val, ok := sess.Values[keyToken].(string)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(val), &token); err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}
	return &token, nil
}

// activeDay is the day selected in the grid, falling back to the season's current day.
func activeDay(c echo.Context, e *Engine) int {
	if sess, err := currentSession(c); err == nil {
		if n, ok := sess.Values[keyDay].(int); ok && n >= 1 && n <= SeasonLength {
			return n
		}
	}
	return e.Season().CurrentDay
}

// httpError maps engine errors onto status codes.
func httpError(err error) error {
	var he *echo.HTTPError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &he):
		return he
	case errors.Is(err, ErrInvalidDay):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDayLocked), errors.Is(err, ErrAlreadyFinalized), errors.Is(err, ErrEmptyDay):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case IsRejection(err):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		log.Error().Err(err).Msg("request")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func dayParam(c echo.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusNotFound, "invalid day")
	}
	return n, nil
}

type dayView struct {
	*Day
	Date      string    `json:"date"`
	Counts    Breakdown `json:"breakdown"`
	Predicted float64   `json:"predictedEnergy"`
	Wake      string    `json:"wakeTime,omitempty"`
}

func viewDay(e *Engine, d *Day) *dayView {
	v := &dayView{
		Day:       d,
		Date:      e.Config().Date(d.Number).Format("2006-01-02"),
		Counts:    d.Breakdown(),
		Predicted: PredictedEnergy(d.Scores.Total),
	}
	if d.WakeMinutes != nil {
		v.Wake = FormatClock(*d.WakeMinutes)
	}
	return v
}

type handlers struct {
	engine   *Engine
	movement *Movement
	oauth    *oauth2.Config
	baseURL  string
}

func (h *handlers) respondDay(c echo.Context, d *Day, err error) error {
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, viewDay(h.engine, d))
}

func (h *handlers) index(c echo.Context) error {
	season := h.engine.Season()
	return c.Render(http.StatusOK, "index.html", map[string]interface{}{
		"path":   h.baseURL,
		"season": season,
		"days":   orderedDays(season),
		"active": activeDay(c, h.engine),
		"review": h.engine.Review(),
	})
}

func orderedDays(s *Season) []*Day {
	days := make([]*Day, 0, SeasonLength)
	for i := 1; i <= SeasonLength; i++ {
		days = append(days, s.Days[i])
	}
	return days
}

func (h *handlers) season(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.Season())
}

func (h *handlers) review(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.Review())
}

func (h *handlers) day(c echo.Context) error {
	n, err := dayParam(c)
	if err != nil {
		return err
	}
	d, err := h.engine.Day(n)
	return h.respondDay(c, d, err)
}

func (h *handlers) getActive(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int{"day": activeDay(c, h.engine)})
}

func (h *handlers) setActive(c echo.Context) error {
	var req struct {
		Day int `json:"day"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Day < 1 || req.Day > SeasonLength {
		return httpError(ErrInvalidDay)
	}
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	sess.Values[keyDay] = req.Day
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"day": req.Day})
}

type eventRequest struct {
	Category Category `json:"category"`
	Mode     MoveMode `json:"mode"`
}

func (h *handlers) logEvent(c echo.Context) error {
	n, err := dayParam(c)
	if err != nil {
		return err
	}
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	d, err := h.engine.LogEvent(c.Request().Context(), n, req.Category, req.Mode)
	return h.respondDay(c, d, err)
}

// quickEvent logs to the active day.
func (h *handlers) quickEvent(c echo.Context) error {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	d, err := h.engine.LogEvent(c.Request().Context(), activeDay(c, h.engine), req.Category, req.Mode)
	return h.respondDay(c, d, err)
}

func (h *handlers) setWake(c echo.Context) error {
	n, err := dayParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Time string `json:"time"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	minutes, err := ParseClock(req.Time)
	if err != nil {
		return httpError(err)
	}
	d, err := h.engine.SetWakeTime(c.Request().Context(), n, minutes)
	return h.respondDay(c, d, err)
}

func (h *handlers) clearWake(c echo.Context) error {
	n, err := dayParam(c)
	if err != nil {
		return err
	}
	d, err := h.engine.ClearWakeTime(c.Request().Context(), n)
	return h.respondDay(c, d, err)
}

func (h *handlers) setHabit(c echo.Context) error {
	n, err := dayParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Done bool `json:"done"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	d, err := h.engine.SetHabit(c.Request().Context(), n, c.Param("name"), req.Done)
	return h.respondDay(c, d, err)
}

func (h *handlers) recordTap(c echo.Context) error {
	n, err := dayParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Count int `json:"count"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	d, err := h.engine.RecordTap(c.Request().Context(), n, TapSlot(c.Param("slot")), req.Count)
	return h.respondDay(c, d, err)
}

func (h *handlers) setGoal(c echo.Context) error {
	n, err := dayParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Goal int `json:"goal"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	d, err := h.engine.SetGoal(c.Request().Context(), n, req.Goal)
	return h.respondDay(c, d, err)
}

func (h *handlers) setRating(c echo.Context) error {
	n, err := dayParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Mood  *int `json:"mood"`
		Focus *int `json:"focus"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	d, err := h.engine.SetRating(c.Request().Context(), n, req.Mood, req.Focus)
	return h.respondDay(c, d, err)
}

func (h *handlers) finalize(c echo.Context) error {
	n, err := dayParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Confirm bool `json:"confirm"`
		Mood    *int `json:"mood"`
		Focus   *int `json:"focus"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	res, err := h.engine.Finalize(c.Request().Context(), n, FinalizeOptions{
		Confirm: req.Confirm,
		Mood:    req.Mood,
		Focus:   req.Focus,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *handlers) addHabit(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	s, err := h.engine.AddHabit(c.Request().Context(), req.Name)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.Habits)
}

func (h *handlers) removeHabit(c echo.Context) error {
	s, err := h.engine.RemoveHabit(c.Request().Context(), c.Param("name"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.Habits)
}

func (h *handlers) globalShot(c echo.Context) error {
	shots, err := h.engine.GlobalShot(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"globalShots": shots})
}

func (h *handlers) sync(c echo.Context) error {
	token, err := sessionToken(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	src, err := NewStravaSource(ctx, h.oauth.ClientID, h.oauth.ClientSecret, token)
	if err != nil {
		return httpError(err)
	}
	res, err := h.movement.Sync(ctx, h.engine, src)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *handlers) feed(c echo.Context) error {
	atom, err := Feed(h.engine.Config(), h.engine.Season(), h.baseURL).ToAtom()
	if err != nil {
		return httpError(err)
	}
	return c.Blob(http.StatusOK, "application/atom+xml", []byte(atom))
}
