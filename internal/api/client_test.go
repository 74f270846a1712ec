package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"visadesk/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, WithToken("tok"))
}

func TestListTravelers_Paginated(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/travelers", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"status":"success","data":{"content":[
			{"id":1,"firstName":"Ada","status":"Doc","dependents":[{"id":5,"firstName":"Kid"}]},
			{"id":2,"firstName":"Bob"}
		],"totalElements":120,"totalPages":3}}`)
	})
	p, err := c.ListTravelers(context.Background(), 2, 50)
	require.NoError(t, err)
	assert.True(t, p.Paginated)
	assert.Equal(t, 120, p.Total)
	assert.Equal(t, 3, p.TotalPages)
	require.Len(t, p.Groups, 2)
	assert.Equal(t, "Ada", p.Groups[0].Traveler.Get("first_name"))
	assert.Equal(t, "Doc", p.Groups[0].Traveler.Get("status"))
	require.Len(t, p.Groups[0].Dependents, 1)
	assert.Equal(t, int64(5), p.Groups[0].Dependents[0].ID)
}

func TestListTravelers_BareArray(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1},{"id":2},{"id":3}]`)
	})
	p, err := c.ListTravelers(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.False(t, p.Paginated)
	assert.Equal(t, 3, p.Total)
	assert.Len(t, p.Groups, 3)
}

func TestListTravelers_ServerError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"status":"error","message":"db down"}`)
	})
	_, err := c.ListTravelers(context.Background(), 0, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.Contains(t, err.Error(), "db down")
}

func TestAuthRequired(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	err := c.PatchField(context.Background(), record.Travelers, 1, "first_name", "x")
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.ErrorIs(t, err, ErrUpdateFailed)
}

func TestPatchField(t *testing.T) {
	var got patchBody
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/dependents/9", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"status":"success"}`)
	})
	require.NoError(t, c.PatchField(context.Background(), record.Dependents, 9, "doc_date", "2030-03-05"))
	assert.Equal(t, patchBody{Field: "doc_date", Value: "2030-03-05"}, got)
}

func TestPatchField_NonSuccessStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"error","message":"locked"}`)
	})
	err := c.PatchField(context.Background(), record.Travelers, 1, "status", "Doc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpdateFailed)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "locked", apiErr.Message)
}

func TestPatchField_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := NewClient(srv.URL)
	srv.Close()
	err := c.PatchField(context.Background(), record.Travelers, 1, "status", "Doc")
	assert.ErrorIs(t, err, ErrUpdateFailed)
}

func TestFetchGroupAndRecord(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/travelers/3":
			_, _ = io.WriteString(w, `{"status":"success","data":{"id":3,"notes":"vip","docDate":"2030-03-05","dependents":[{"id":4}]}}`)
		case "/dependents/4":
			// Bare record: its status is the record status.
			_, _ = io.WriteString(w, `{"id":4,"status":"Hold","notes":""}`)
		default:
			http.NotFound(w, r)
		}
	})
	g, err := c.FetchGroup(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, g.Traveler.IsDetailed())
	assert.Equal(t, "05/03/2030", g.Traveler.Get("doc_date"))
	require.Len(t, g.Dependents, 1)

	d, err := c.FetchRecord(context.Background(), record.Dependents, 4)
	require.NoError(t, err)
	assert.Equal(t, "Hold", d.Get("status"))

	_, err = c.FetchRecord(context.Background(), record.Dependents, 99)
	assert.ErrorIs(t, err, ErrLoadFailed)
}

func TestCreate(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		switch r.URL.Path {
		case "/travelers":
			_, _ = io.WriteString(w, `{"status":"success","data":{"id":41}}`)
		case "/dependents":
			assert.Equal(t, "41", r.URL.Query().Get("traveler_id"))
			_, _ = io.WriteString(w, `{"status":"success","data":42}`)
		}
	})
	id, err := c.CreateTraveler(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(41), id)
	dep, err := c.CreateDependent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(42), dep)
}

func TestDelete(t *testing.T) {
	var method, path string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.Delete(context.Background(), record.Travelers, 8))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/travelers/8", path)
}

func TestLookupPostcode(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/postcode/SW1A1AA" {
			_, _ = io.WriteString(w, `{"status":"success","data":{"addressLine1":"10 Downing St","city":"London","country":"United Kingdom"}}`)
			return
		}
		http.NotFound(w, r)
	})
	addr, err := c.LookupPostcode(context.Background(), "sw1a 1aa")
	require.NoError(t, err)
	assert.Equal(t, "10 Downing St", addr.Line1)
	assert.Equal(t, "London", addr.City)
	assert.Equal(t, "SW1A1AA", addr.Postcode)

	_, err = c.LookupPostcode(context.Background(), "ZZ1")
	assert.ErrorIs(t, err, ErrPostcodeNotFound)
}
