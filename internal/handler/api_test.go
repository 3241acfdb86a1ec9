package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-seat-reservation/internal/config"
	"github.com/iliyamo/train-seat-reservation/internal/handler"
	"github.com/iliyamo/train-seat-reservation/internal/model"
	"github.com/iliyamo/train-seat-reservation/internal/payment"
	"github.com/iliyamo/train-seat-reservation/internal/pricing"
	"github.com/iliyamo/train-seat-reservation/internal/router"
	"github.com/iliyamo/train-seat-reservation/internal/schedule"
	"github.com/iliyamo/train-seat-reservation/internal/service"
	"github.com/iliyamo/train-seat-reservation/internal/store/memstore"
	"github.com/iliyamo/train-seat-reservation/internal/utils"
)

const (
	secret   = "api-test-secret"
	password = "s3cret-pass"
)

type api struct {
	t      *testing.T
	e      *echo.Echo
	tripID uint64
}

func newAPI(t *testing.T) *api {
	t.Helper()
	cfg := config.DefaultEngineConfig()
	st := memstore.New(time.Second)

	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)
	for i, u := range []struct{ email, role string }{
		{"ops@example.com", model.RoleOperator},
		{"ann@example.com", model.RoleCustomer},
		{"ben@example.com", model.RoleCustomer},
	} {
		st.PutUser(model.User{ID: uint64(i + 1), Email: u.email, PasswordHash: hash, Role: u.role, IsActive: true})
	}
	st.PutRoute(model.Route{ID: 1, Name: "Line", Stations: []model.RouteStation{
		{StationID: 1, StationCode: "A", StationName: "Alpha", Sequence: 1, DistanceKm: 0},
		{StationID: 2, StationCode: "B", StationName: "Bravo", Sequence: 2, DistanceKm: 60, DefaultStopMinutes: 5},
		{StationID: 3, StationCode: "C", StationName: "Charlie", Sequence: 3, DistanceKm: 120},
	}})
	st.PutTrainType(model.TrainType{ID: 1, Name: "Regional"})
	st.PutTrain(model.Train{ID: 1, Code: "R-9", TrainTypeID: 1})
	for id := uint64(1); id <= 3; id++ {
		st.PutSeat(model.Seat{ID: id, CoachID: 1, CoachName: "C1", TrainID: 1, Name: fmt.Sprintf("%dA", id),
			SeatTypeMultiplier: 1, CoachTypeMultiplier: 1, IsEnabled: true})
	}

	resolver := pricing.NewResolver(cfg)
	trips := service.NewTripService(st, schedule.New(cfg), nil)
	ledger := service.NewSeatHoldLedger(st, cfg, nil)
	bookings := service.NewBookingService(st, resolver, payment.NewSimulated(), nil, nil)

	dep := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Minute)
	trip, err := trips.CreateTrip(context.Background(), service.CreateTripRequest{
		TrainID: 1, RouteID: 1, DepartureAt: dep, ArrivalAt: dep.Add(2*time.Hour + 5*time.Minute),
	})
	require.NoError(t, err)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Handlers{
		Auth:     handler.NewAuthHandler(secret, 15, st),
		Trips:    handler.NewTripHandler(trips, ledger, service.NewPricingService(st, resolver)),
		Holds:    handler.NewHoldHandler(ledger),
		Bookings: handler.NewBookingHandler(bookings),
		Operator: handler.NewOperatorHandler(trips),
	}, router.Options{JWTSecret: secret})

	return &api{t: t, e: e, tripID: trip.ID}
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *api) login(email string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(a.t, rec)
	return body["access"].(map[string]any)["token"].(string)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestLoginRejectsBadPassword(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ann@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "nobody@example.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingJourney(t *testing.T) {
	a := newAPI(t)
	ann := a.login("ann@example.com")
	ben := a.login("ben@example.com")
	holds := fmt.Sprintf("/v1/trips/%d/holds", a.tripID)

	rec := a.do(http.MethodPost, holds, ann, echo.Map{"seat_ids": []uint64{1, 2}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode(t, rec)["failed_seat_ids"])

	rec = a.do(http.MethodPost, holds, ben, echo.Map{"seat_ids": []uint64{1}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	results := decode(t, rec)["results"].([]any)
	assert.Equal(t, service.ReasonHeldByOther, results[0].(map[string]any)["reason"])

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/trips/%d/seats", a.tripID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["seats"], 1)

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/trips/%d/seats", a.tripID), ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["seats"], 3)

	rec = a.do(http.MethodPost, "/v1/bookings", ann, echo.Map{
		"contact_email": "ann@example.com",
		"total_cents":   36000,
		"passengers": []echo.Map{
			{"full_name": "Ann A", "identity_number": "ID-0001111"},
			{"full_name": "Kid A", "identity_number": "ID-0002222", "passenger_type": "child"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode(t, rec)
	bookingID := uint64(booking["id"].(float64))
	passengers := booking["passengers"].([]any)
	require.Len(t, passengers, 2)
	assert.Equal(t, "******1111", passengers[0].(map[string]any)["identity_number"])
	p1 := passengers[0].(map[string]any)["id"].(float64)
	p2 := passengers[1].(map[string]any)["id"].(float64)

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/tickets", bookingID), ann, echo.Map{
		"trip_id":     a.tripID,
		"assignments": []echo.Map{{"seat_id": 1, "passenger_id": p1}, {"seat_id": 2, "passenger_id": p2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tickets := decode(t, rec)["tickets"].([]any)
	require.Len(t, tickets, 2)
	ticketID := uint64(tickets[0].(map[string]any)["id"].(float64))

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/bookings/%d", bookingID), ben, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/pay", bookingID), ann, echo.Map{"amount_cents": 36000, "method": "card"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decode(t, rec)
	assert.Equal(t, "CONFIRMED", paid["status"])
	assert.Equal(t, "PAID", paid["payment_status"])

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/tickets/%d/pdf", ticketID), ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/tickets/%d/pdf", ticketID), ben, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/cancel", bookingID), ann, echo.Map{"reason": "plans changed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode(t, rec)
	assert.Equal(t, "CANCELLED", cancelled["status"])
	assert.Equal(t, "REFUNDED", cancelled["payment_status"])

	rec = a.do(http.MethodPost, holds, ben, echo.Map{"seat_ids": []uint64{1}})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestDeclinedPaymentIs402(t *testing.T) {
	a := newAPI(t)
	ann := a.login("ann@example.com")

	rec := a.do(http.MethodPost, "/v1/bookings", ann, echo.Map{
		"code":        "BK-DECLINE",
		"total_cents": 18000,
		"passengers":  []echo.Map{{"full_name": "Ann A", "identity_number": "X1"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode(t, rec)
	id := uint64(booking["id"].(float64))
	passengerID := booking["passengers"].([]any)[0].(map[string]any)["id"]

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/trips/%d/holds", a.tripID), ann, echo.Map{"seat_ids": []uint64{3}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/tickets", id), ann, echo.Map{
		"trip_id":     a.tripID,
		"assignments": []echo.Map{{"seat_id": 3, "passenger_id": passengerID}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/pay", id), ann, echo.Map{"amount_cents": 18000, "method": "declined"})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "PENDING", decode(t, rec)["booking"].(map[string]any)["status"])

	rec = a.do(http.MethodPost, "/v1/bookings", ann, echo.Map{
		"code":        "BK-DECLINE",
		"total_cents": 18000,
		"passengers":  []echo.Map{{"full_name": "Ann A", "identity_number": "X1"}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHoldValidation(t *testing.T) {
	a := newAPI(t)
	ann := a.login("ann@example.com")

	rec := a.do(http.MethodPost, fmt.Sprintf("/v1/trips/%d/holds", a.tripID), "", echo.Map{"seat_ids": []uint64{1}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/trips/%d/holds", a.tripID), ann, echo.Map{"seat_ids": []uint64{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/v1/trips/999/holds", ann, echo.Map{"seat_ids": []uint64{1}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/trips/%d/holds", a.tripID), ann, echo.Map{"seat_ids": []uint64{1, 3}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodDelete, fmt.Sprintf("/v1/trips/%d/holds", a.tripID), ann, echo.Map{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []any{1.0, 3.0}, decode(t, rec)["released_seat_ids"])
}

func TestTripCatalog(t *testing.T) {
	a := newAPI(t)
	date := time.Now().UTC().Add(48 * time.Hour).Format("2006-01-02")

	rec := a.do(http.MethodGet, "/v1/trips?origin=2&destination=3&date="+date, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode(t, rec)["trips"], 1)

	rec = a.do(http.MethodGet, "/v1/trips?origin=3&destination=1&date="+date, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["trips"], 0)

	rec = a.do(http.MethodGet, "/v1/trips?origin=1&destination=3&date=tomorrow", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/trips/%d/schedule", a.tripID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["stations"], 3)

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/trips/%d/quote?seat_id=1&round_trip=true", a.tripID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	quote := decode(t, rec)
	assert.Equal(t, 36000.0, quote["trip_cents"])

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/trips/%d/feed?format=text", a.tripID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"B"`)
}

func TestOperatorRoutes(t *testing.T) {
	a := newAPI(t)
	ann := a.login("ann@example.com")
	ops := a.login("ops@example.com")
	dep := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Minute)
	body := echo.Map{"train_id": 1, "route_id": 1, "departure_at": dep, "arrival_at": dep.Add(3 * time.Hour)}

	rec := a.do(http.MethodPost, "/v1/operator/trips", ann, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/v1/operator/trips", ops, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	trip := decode(t, rec)["trip"].(map[string]any)
	id := uint64(trip["id"].(float64))
	assert.Len(t, trip["stations"], 3)

	rec = a.do(http.MethodPut, fmt.Sprintf("/v1/operator/trips/%d/schedule", id), ops,
		echo.Map{"departure_at": dep.Add(time.Hour), "arrival_at": dep.Add(4 * time.Hour)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/operator/trips/%d/cancel", id), ops, echo.Map{"reason": "storm"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANCELLED", decode(t, rec)["trip"].(map[string]any)["status"])

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/trips/%d/holds", id), ann, echo.Map{"seat_ids": []uint64{1}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/operator/holds/sweep", ops, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
