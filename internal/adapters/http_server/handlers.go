package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"pricing_catalog/internal/app"
	"pricing_catalog/internal/domain"
)

type Handlers struct {
	Cities  *app.CityResolver
	Catalog *app.CatalogService
	Pricing *app.PricingService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// kindPaths maps URL segments onto catalog kinds.
var kindPaths = map[string]domain.Kind{
	"hotels":      domain.KindHotel,
	"sic-tours":   domain.KindSicTour,
	"sightseeing": domain.KindSightseeing,
	"transfers":   domain.KindTransfer,
	"restaurants": domain.KindRestaurant,
}

const maxBody = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Use(Tenant)
		if s.limiter != nil {
			r.Use(RateLimit(s.limiter))
		}

		r.Get("/cities", h.listCities)
		r.Post("/cities", h.createCity)

		for path, kind := range kindPaths {
			r.Route("/"+path, func(r chi.Router) {
				r.Get("/", h.listEntries(kind))
				r.Post("/", h.createEntry(kind))
				r.Put("/{id}", h.updateEntry(kind))
				r.Delete("/{id}", h.deleteEntry(kind))

				switch kind.Periods() {
				case domain.RatePeriods:
					r.Get("/{id}/pricing", h.listRatePeriods(kind))
					r.Post("/{id}/pricing", h.addRatePeriod(kind))
					r.Put("/{id}/pricing/{pricingId}", h.updateRatePeriod(kind))
					r.Delete("/{id}/pricing/{pricingId}", h.deleteRatePeriod(kind))
				case domain.MenuPrices:
					r.Get("/{id}/menu", h.listMenuPrices)
					r.Post("/{id}/menu", h.addMenuPrice)
					r.Put("/{id}/menu/{menuId}", h.updateMenuPrice)
					r.Delete("/{id}/menu/{menuId}", h.deleteMenuPrice)
				}
			})
		}
	})
}

/********** request bodies **********/

type cityRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type entryRequest struct {
	CityID   *int64   `json:"city_id" validate:"omitempty,gt=0"`
	CityName *string  `json:"city_name" validate:"required_without=CityID,omitempty,max=255"`
	Name     string   `json:"name" validate:"required,max=255"`
	Category *string  `json:"category" validate:"omitempty,max=100"`
	Price    *float64 `json:"price"`
}

func (e entryRequest) toDomain(kind domain.Kind, id int64) (domain.Entry, domain.CityRef) {
	return domain.Entry{Kind: kind, ID: id, Name: e.Name, Category: e.Category, Price: e.Price},
		domain.CityRef{ID: e.CityID, Name: e.CityName}
}

type ratePeriodRequest struct {
	StartDate        domain.Date `json:"start_date"`
	EndDate          domain.Date `json:"end_date"`
	PPDblRate        *float64    `json:"pp_dbl_rate" validate:"required"`
	SingleSupplement *float64    `json:"single_supplement"`
	Child0to2        *float64    `json:"child_0to2"`
	Child3to5        *float64    `json:"child_3to5"`
	Child6to11       *float64    `json:"child_6to11"`
}

func (p ratePeriodRequest) toDomain(id int64) domain.RatePeriod {
	return domain.RatePeriod{
		ID:               id,
		StartDate:        p.StartDate,
		EndDate:          p.EndDate,
		PPDblRate:        p.PPDblRate,
		SingleSupplement: p.SingleSupplement,
		Child0to2:        p.Child0to2,
		Child3to5:        p.Child3to5,
		Child6to11:       p.Child6to11,
	}
}

type menuPriceRequest struct {
	MenuOption string      `json:"menu_option" validate:"required,max=255"`
	Price      *float64    `json:"price" validate:"required"`
	StartDate  domain.Date `json:"start_date"`
	EndDate    domain.Date `json:"end_date"`
}

func (m menuPriceRequest) toDomain(id int64) domain.MenuPrice {
	return domain.MenuPrice{ID: id, MenuOption: m.MenuOption, Price: m.Price, StartDate: m.StartDate, EndDate: m.EndDate}
}

/********** helpers **********/

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain error kinds onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *domain.ValidationError
		nf *domain.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		writeProblem(w, http.StatusBadRequest, "Validation Failed", ve.Error())
	case errors.As(err, &nf):
		writeProblem(w, http.StatusNotFound, "Not Found", nf.Error())
	default:
		// store failures were already logged where they were wrapped
		if !domain.IsStore(err) {
			log.Error().Err(err).Str("route", routeOf(r)).Msg("request failed")
		}
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: %s", jsonName(fe.Field()), fe.Tag()))
			}
			writeProblem(w, http.StatusBadRequest, "Validation Failed", strings.Join(msgs, "; "))
			return false
		}
		writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

var jsonNames = map[string]string{
	"CityID": "city_id", "CityName": "city_name", "Name": "name", "Category": "category",
	"Price": "price", "PPDblRate": "pp_dbl_rate", "MenuOption": "menu_option",
}

func jsonName(field string) string {
	if n, ok := jsonNames[field]; ok {
		return n
	}
	return field
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", param+" must be a positive number")
		return 0, false
	}
	return id, true
}

func userOf(r *http.Request) int64 {
	id, _ := UserID(r.Context())
	return id
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeList serves a GET response with a weak ETag and honors If-None-Match.
func writeList(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write list body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

/********** cities **********/

func (h *Handlers) listCities(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Cities.ListCities(r.Context(), userOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, cs)
}

func (h *Handlers) createCity(w http.ResponseWriter, r *http.Request) {
	var req cityRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.Cities.EnsureCity(r.Context(), userOf(r), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

/********** catalog entries **********/

func (h *Handlers) listEntries(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cityID *int64
		if v := r.URL.Query().Get("city_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid city_id", "city_id must be a number")
				return
			}
			cityID = &id
		}
		es, err := h.Catalog.List(r.Context(), userOf(r), kind, cityID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeList(w, r, es)
	}
}

func (h *Handlers) createEntry(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entryRequest
		if !decode(w, r, &req) {
			return
		}
		e, ref := req.toDomain(kind, 0)
		out, err := h.Catalog.Create(r.Context(), userOf(r), e, ref)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func (h *Handlers) updateEntry(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var req entryRequest
		if !decode(w, r, &req) {
			return
		}
		e, ref := req.toDomain(kind, id)
		out, err := h.Catalog.Update(r.Context(), userOf(r), e, ref)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (h *Handlers) deleteEntry(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if err := h.Catalog.Delete(r.Context(), userOf(r), kind, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

/********** rate periods **********/

func (h *Handlers) listRatePeriods(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parent, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		ps, err := h.Pricing.ListRatePeriods(r.Context(), userOf(r), kind, parent)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeList(w, r, ps)
	}
}

func (h *Handlers) addRatePeriod(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parent, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var req ratePeriodRequest
		if !decode(w, r, &req) {
			return
		}
		p, err := h.Pricing.AddRatePeriod(r.Context(), userOf(r), kind, parent, req.toDomain(0))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func (h *Handlers) updateRatePeriod(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parent, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		id, ok := pathID(w, r, "pricingId")
		if !ok {
			return
		}
		var req ratePeriodRequest
		if !decode(w, r, &req) {
			return
		}
		p, err := h.Pricing.UpdateRatePeriod(r.Context(), userOf(r), kind, parent, req.toDomain(id))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (h *Handlers) deleteRatePeriod(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parent, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		id, ok := pathID(w, r, "pricingId")
		if !ok {
			return
		}
		if err := h.Pricing.DeleteRatePeriod(r.Context(), userOf(r), kind, parent, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

/********** restaurant menu **********/

func (h *Handlers) listMenuPrices(w http.ResponseWriter, r *http.Request) {
	parent, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ms, err := h.Pricing.ListMenuPrices(r.Context(), userOf(r), parent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, ms)
}

func (h *Handlers) addMenuPrice(w http.ResponseWriter, r *http.Request) {
	parent, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req menuPriceRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.Pricing.AddMenuPrice(r.Context(), userOf(r), parent, req.toDomain(0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handlers) updateMenuPrice(w http.ResponseWriter, r *http.Request) {
	parent, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "menuId")
	if !ok {
		return
	}
	var req menuPriceRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.Pricing.UpdateMenuPrice(r.Context(), userOf(r), parent, req.toDomain(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) deleteMenuPrice(w http.ResponseWriter, r *http.Request) {
	parent, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "menuId")
	if !ok {
		return
	}
	if err := h.Pricing.DeleteMenuPrice(r.Context(), userOf(r), parent, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
