package nautobot

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

func ref(name string) *namedRef { return &namedRef{Name: name} }

func TestComputeLocation(t *testing.T) {
	cases := []struct {
		name   string
		device Device
		want   Location
	}{
		{
			name:   "tenant wins over site",
			device: Device{Tenant: ref("acme"), Site: ref("dc-east"), Rack: ref("r12"), Position: float64(40)},
			want:   Location{Site: "acme", Rack: "r12-U40"},
		},
		{
			name:   "site fallback",
			device: Device{Site: ref("dc-east"), Rack: ref("r12")},
			want:   Location{Site: "dc-east", Rack: "r12"},
		},
		{
			name:   "position without rack",
			device: Device{Site: ref("dc-east"), Position: "7"},
			want:   Location{Site: "dc-east", Rack: "U7"},
		},
		{
			name:   "nothing known",
			device: Device{},
			want:   Location{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeLocation(tc.device))
		})
	}
}

func TestIndexLookupCaseFallback(t *testing.T) {
	index := &Index{
		exact: map[string]Location{"Leaf-101": {Site: "acme"}},
		lower: map[string]Location{"leaf-101": {Site: "acme"}},
	}

	loc, ok := index.Lookup("Leaf-101")
	require.True(t, ok)
	assert.Equal(t, "acme", loc.Site)

	_, ok = index.Lookup("LEAF-101")
	assert.True(t, ok)

	_, ok = index.Lookup("leaf-999")
	assert.False(t, ok)

	_, ok = index.Lookup("")
	assert.False(t, ok)
}

func TestFetchLocationsFollowsPagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Token token-abc", r.Header.Get("Authorization"))
		if r.URL.Query().Get("offset") == "" {
			fmt.Fprintf(w, `{
				"results": [
					{"name": "leaf-101", "site": {"name": "dc-east"}, "rack": {"name": "r1"}, "position": 10}
				],
				"next": "%s/dcim/devices/?limit=100&offset=100"
			}`, srv.URL)
			return
		}
		fmt.Fprint(w, `{
			"results": [
				{"name": "", "display": "leaf-102", "tenant": {"name": "acme"}},
				{"name": ""}
			],
			"next": null
		}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token-abc", zerolog.Nop())
	index, err := c.FetchLocations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, index.Len())

	loc, ok := index.Lookup("leaf-101")
	require.True(t, ok)
	assert.Equal(t, Location{Site: "dc-east", Rack: "r1-U10"}, loc)

	// display name is a fallback when name is empty
	loc, ok = index.Lookup("leaf-102")
	require.True(t, ok)
	assert.Equal(t, "acme", loc.Site)
}

func TestFetchLocationsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", zerolog.Nop())
	_, err := c.FetchLocations(context.Background())
	assert.Error(t, err)
}
