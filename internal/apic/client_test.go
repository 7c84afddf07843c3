package apic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginExtractsToken(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/aaaLogin.json":
			fmt.Fprint(w, `{"imdata":[{"aaaLogin":{"attributes":{"token":"tok-123"}}}]}`)
		case "/api/class/fabricNode.json":
			if c, err := r.Cookie("APIC-cookie"); err == nil {
				gotCookie = c.Value
			}
			fmt.Fprint(w, `{"imdata":[{"fabricNode":{"attributes":{"dn":"topology/pod-1/node-101"}}}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, false, zerolog.Nop())
	require.NoError(t, c.Login(context.Background(), "admin", "pw"))

	records, err := c.ClassQuery(context.Background(), ClassNodeInventory)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "tok-123", gotCookie)
}

func TestLoginRejectedCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, false, zerolog.Nop())
	err := c.Login(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestLoginMissingToken(t *testing.T) {
	cases := []string{
		`{"imdata":[]}`,
		`{"imdata":[{"aaaLogin":{"attributes":{}}}]}`,
		`{"imdata":[{"somethingElse":{"attributes":{"token":"x"}}}]}`,
	}
	for _, body := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		}))
		c := NewClient(srv.URL, false, zerolog.Nop())
		err := c.Login(context.Background(), "admin", "pw")
		assert.ErrorIs(t, err, ErrAuthentication, "body %s", body)
		srv.Close()
	}
}

func TestClassQuerySkipsRecordsWithoutAttributes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"imdata":[
			{"topSystem":{"attributes":{"dn":"topology/pod-1/node-101/sys"}}},
			{"topSystem":{}},
			{"faultInst":{"attributes":{"dn":"irrelevant"}}}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, false, zerolog.Nop())
	records, err := c.ClassQuery(context.Background(), ClassSystem)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFetchDatasetsDegradesPerClass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/class/fabricNode.json":
			fmt.Fprint(w, `{"imdata":[{"fabricNode":{"attributes":{"dn":"topology/pod-1/node-101"}}}]}`)
		case "/api/class/eqptFan.json":
			// one broken dataset must not abort the pass
			w.WriteHeader(http.StatusInternalServerError)
		default:
			fmt.Fprint(w, `{"imdata":[]}`)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, false, zerolog.Nop())
	datasets, err := c.FetchDatasets(context.Background())
	require.NoError(t, err)
	assert.Len(t, datasets.Records(ClassNodeInventory), 1)
	assert.Empty(t, datasets.Records(ClassFan))
	assert.NotNil(t, datasets)
}

func TestFetchDatasetsAbortsOnInventoryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/class/fabricNode.json" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"imdata":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, false, zerolog.Nop())
	_, err := c.FetchDatasets(context.Background())
	assert.Error(t, err)
}
