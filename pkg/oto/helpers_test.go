package oto_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tournevent/oto/pkg/oto"
	"github.com/tournevent/oto/pkg/oto/otomock"
)

const testAPIKey = "test-key"

func newTestClient(t *testing.T, opts oto.Options, clientOpts ...oto.ClientOption) (*oto.Client, *otomock.Server) {
	t.Helper()

	api := otomock.NewServer()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL
	client, err := oto.New(testAPIKey, opts, clientOpts...)
	require.NoError(t, err)
	return client, api
}

func newTestBackend(t *testing.T, baseURL string, clientOpts ...oto.ClientOption) *oto.Backend {
	t.Helper()

	backend, err := oto.NewBackend(testAPIKey, oto.NewConfig(oto.Options{BaseURL: baseURL}), clientOpts...)
	require.NoError(t, err)
	return backend
}
