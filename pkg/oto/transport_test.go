package oto_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/oto/pkg/oto"
	"github.com/tournevent/oto/pkg/oto/otomock"
)

func gatherCounter(t *testing.T, reg *prometheus.Registry, name string) map[string]float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	out := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			key := labels[oto.MetricsMethodLabel] + " " + labels[oto.MetricsPathLabel] + " " + labels[oto.MetricsCodeLabel]
			out[key] = m.GetCounter().GetValue()
		}
	}
	return out
}

func TestTransport_MetricsUsePathTemplates(t *testing.T) {
	reg := prometheus.NewRegistry()
	client, api := newTestClient(t, oto.Options{}, oto.WithMetrics(reg))
	api.OnCancelShipment = func(string) (map[string]any, error) {
		return nil, &otomock.Error{Status: http.StatusConflict, Message: "already delivered"}
	}
	ctx := context.Background()

	_, err := client.TrackShipment(ctx, "TRK1")
	require.NoError(t, err)
	_, err = client.TrackShipment(ctx, "TRK2")
	require.NoError(t, err)
	_, err = client.MultiTrack(ctx, []string{"TRK1"})
	require.NoError(t, err)
	_, err = client.CancelShipment(ctx, "TRK1")
	require.Error(t, err)

	counts := gatherCounter(t, reg, "oto_outbound_request_count")
	assert.Equal(t, map[string]float64{
		"GET /tracking/- 200":      2,
		"POST /tracking/batch 200": 1,
		"DELETE /shipments/- 409":  1,
	}, counts)
}

func TestTransport_MetricsRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, _ := newTestClient(t, oto.Options{}, oto.WithMetrics(reg))
	second, _ := newTestClient(t, oto.Options{}, oto.WithMetrics(reg))

	_, err := first.ListCouriers(context.Background())
	require.NoError(t, err)
	_, err = second.ListCouriers(context.Background())
	require.NoError(t, err)

	counts := gatherCounter(t, reg, "oto_outbound_request_count")
	assert.Equal(t, float64(2), counts["GET /couriers 200"])
}

func TestTransport_UnknownPathUsesFirstSegment(t *testing.T) {
	reg := prometheus.NewRegistry()
	api := otomock.NewServer()

	backend, err := oto.NewBackend(testAPIKey, oto.NewConfig(oto.Options{}),
		oto.WithHTTPTransport(api.RoundTripper()),
		oto.WithMetrics(reg),
	)
	require.NoError(t, err)

	_, err = backend.Requester().Get(context.Background(), "reports/daily/2024-01-01", nil)
	require.Error(t, err)

	counts := gatherCounter(t, reg, "oto_outbound_request_count")
	assert.Equal(t, float64(1), counts["GET /reports 404"])
}
