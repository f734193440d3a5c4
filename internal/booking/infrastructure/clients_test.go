package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/internal/config"
	"github.com/mateusmacedo/go-busbooking/pkg/application"
)

var validCriteria = domain.Criteria{RouteID: "1", Date: "2025-01-10", Schedule: "08:00"}

func newTestAPI(t *testing.T, handler http.HandlerFunc) (*APIClient, *MemoryCredentialStore, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	store := NewMemoryCredentialStore()
	require.NoError(t, store.Save(context.Background(), "tok"))
	api := NewAPIClient(srv.URL, config.DefaultEndpoints(), time.Second, store, application.NopLogger{})
	return api, store, &hits
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestAvailabilitySendsCriteriaAndBearer(t *testing.T) {
	api, _, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reservation/availability/1/2025-01-10", r.URL.Path)
		assert.Equal(t, "08:00", r.URL.Query().Get("schedule"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"available_seats":[10,1,5]}`)
	})

	snapshot, err := NewReservationClient(api).Availability(context.Background(), validCriteria)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5, 10}, snapshot.Seats())
}

func TestAvailabilityFailsFastWithoutNetwork(t *testing.T) {
	api, store, hits := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"available_seats":[]}`)
	})
	client := NewReservationClient(api)

	_, err := client.Availability(context.Background(), domain.Criteria{RouteID: "1", Date: "2025-01-10"})
	assert.True(t, domain.IsValidation(err))

	require.NoError(t, store.Clear(context.Background()))
	_, err = client.Availability(context.Background(), validCriteria)
	assert.True(t, domain.IsValidation(err))

	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestAvailabilityMalformedPayloads(t *testing.T) {
	for name, body := range map[string]string{
		"missing key":  `{"seats":[1,2]}`,
		"not an array": `{"available_seats":"1,2"}`,
		"null":         `{"available_seats":null}`,
		"out of range": `{"available_seats":[1,99]}`,
		"not json":     `<html>`,
	} {
		t.Run(name, func(t *testing.T) {
			api, _, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, body)
			})
			_, err := NewReservationClient(api).Availability(context.Background(), validCriteria)
			assert.True(t, domain.IsMalformed(err), "%v", err)
		})
	}
}

func TestUnauthorizedMapsToAuthExpired(t *testing.T) {
	api, _, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Token has expired"}`)
	})

	_, err := NewReservationClient(api).Availability(context.Background(), validCriteria)
	assert.True(t, domain.IsAuthExpired(err))

	_, err = NewDirectoryClient(api).Routes(context.Background())
	assert.True(t, domain.IsAuthExpired(err))

	_, err = NewProfileClient(api).Profile(context.Background())
	assert.True(t, domain.IsAuthExpired(err))
}

func TestServerErrorBecomesTransportError(t *testing.T) {
	api, _, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `oops`)
	})

	_, err := NewReservationClient(api).Availability(context.Background(), validCriteria)
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.Status)
	assert.Equal(t, "could not check availability", te.Message)
}

func TestReserveSendsArrayPayload(t *testing.T) {
	api, _, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/reservation/reserve", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(1), body["bus_id"])
		assert.Equal(t, []interface{}{float64(1), float64(5)}, body["seat_numbers"])
		assert.Equal(t, "2025-01-10", body["date"])
		assert.Equal(t, "08:00", body["schedule"])
		writeJSON(w, http.StatusOK, `{"message":"Seats reserved successfully"}`)
	})

	ack, err := NewReservationClient(api).Reserve(context.Background(), domain.NewReservationRequest(validCriteria, []int{1, 5}))
	require.NoError(t, err)
	assert.Equal(t, "Seats reserved successfully", ack.Message)
}

func TestReserveGuardsLocally(t *testing.T) {
	api, _, hits := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	client := NewReservationClient(api)

	for _, seats := range [][]int{nil, {1, 2, 3}} {
		_, err := client.Reserve(context.Background(), domain.NewReservationRequest(validCriteria, seats))
		assert.True(t, domain.IsValidation(err))
	}
	_, err := client.Reserve(context.Background(), domain.NewReservationRequest(domain.Criteria{RouteID: "1"}, []int{1}))
	assert.True(t, domain.IsValidation(err))
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestReserveSurfacesServerMessage(t *testing.T) {
	api, _, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"message":"Seat already reserved"}`)
	})

	_, err := NewReservationClient(api).Reserve(context.Background(), domain.NewReservationRequest(validCriteria, []int{1}))
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Seat already reserved", te.Message)
}

func TestReserveAcceptsEmptyAcknowledgement(t *testing.T) {
	api, _, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	ack, err := NewReservationClient(api).Reserve(context.Background(), domain.NewReservationRequest(validCriteria, []int{2}))
	require.NoError(t, err)
	assert.Equal(t, "seats reserved", ack.Message)
}

func TestDirectoryClient(t *testing.T) {
	api, _, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/routes/routes":
			writeJSON(w, http.StatusOK, `[{"id":1,"origin":"Lisboa","destination":"Porto"}]`)
		case "/api/routes/schedules/1":
			writeJSON(w, http.StatusOK, `{"schedules":["08:00","14:30"]}`)
		default:
			writeJSON(w, http.StatusOK, `{"unexpected":true}`)
		}
	})
	client := NewDirectoryClient(api)

	routes, err := client.Routes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Route{{ID: 1, Origin: "Lisboa", Destination: "Porto"}}, routes)

	schedules, err := client.Schedules(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "14:30"}, schedules)

	_, err = client.Schedules(context.Background(), "2")
	assert.True(t, domain.IsMalformed(err))
}

func TestProfileClientKeepsSecurityCodeInsideInstrument(t *testing.T) {
	api, _, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"username":"ana","email":"ana@example.com","card_number":"4111111111111111","expiry_date":"12/30","cvv":"321"}`)
	})

	profile, err := NewProfileClient(api).Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana", profile.Username)
	assert.True(t, profile.Instrument.Matches("321"))
	assert.Equal(t, "**** 1111", profile.Instrument.MaskedCard())
}

func TestAuthClient(t *testing.T) {
	api, _, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		var body credentialsBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/api/auth/login":
			if body.Password != "secret" {
				writeJSON(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"token":"jwt-token"}`)
		case "/api/auth/register":
			writeJSON(w, http.StatusCreated, `{"message":"User registered successfully"}`)
		}
	})
	client := NewAuthClient(api)

	cred, err := client.Login(context.Background(), "ana", "secret")
	require.NoError(t, err)
	assert.Equal(t, domain.Credential("jwt-token"), cred)

	_, err = client.Login(context.Background(), "ana", "wrong")
	assert.False(t, domain.IsAuthExpired(err))
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Invalid credentials", te.Message)

	msg, err := client.Register(context.Background(), "ana", "secret", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully", msg)

	_, err = client.Register(context.Background(), "ana", "secret", "nope")
	assert.True(t, domain.IsValidation(err))
}
