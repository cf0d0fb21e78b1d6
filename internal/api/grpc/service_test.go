package grpcapi

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/signal-audit/internal/catalog"
	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/orchestrator"
	"github.com/danielpatrickdp/signal-audit/internal/scan"
	"github.com/danielpatrickdp/signal-audit/internal/state"
)

type saveFails struct{ *state.MemoryStore }

func (saveFails) Save(context.Context, state.Snapshot) error { return errors.New("read-only") }

type fetchFails struct{}

func (fetchFails) Fetch(context.Context, string) (scan.Result, error) {
	return scan.Result{}, errors.New("connection refused")
}

func startServer(t *testing.T, store state.Store, opts ...orchestrator.Option) (*Client, *grpc.ClientConn) {
	t.Helper()
	svc := orchestrator.NewService(store, catalog.Default(), opts...)

	lis := bufconn.Listen(1 << 20)
	srv := NewServerWithListener(lis, svc, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return NewClient(conn), conn
}

func TestTrackAndGetSystem(t *testing.T) {
	client, _ := startServer(t, state.NewMemoryStore())
	ctx := context.Background()

	resp, err := client.Track(ctx, "wizard_complete", 1)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.Persisted)
	require.Len(t, resp.System.RecentEvents, 1)
	assert.Equal(t, "wizard_complete", resp.System.RecentEvents[0].Name)

	view, err := client.GetSystem(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, view.Stats.Total)
	assert.Equal(t, 1, view.Stats.Clear)
	for _, d := range view.Decisions {
		if d.ID == "dec_fix_onboarding" {
			assert.Equal(t, decisions.StatusClear, d.Status)
			require.Len(t, d.RequiredSignals, 1)
			require.Len(t, d.AffectedFlows, 1)
			assert.Equal(t, "flow_onboarding", d.AffectedFlows[0].ID)
		}
	}
}

func TestTrackRequiresEventName(t *testing.T) {
	client, _ := startServer(t, state.NewMemoryStore())

	_, err := client.Track(context.Background(), "", 1)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestScanDocument(t *testing.T) {
	client, _ := startServer(t, state.NewMemoryStore())
	doc := `<script src="https://www.googletagmanager.com/gtm.js"></script>
<script src="https://connect.facebook.net/en_US/fbevents.js"></script>`

	resp, err := client.Scan(context.Background(), "acme.test", doc)
	require.NoError(t, err)
	assert.Equal(t, "https://acme.test", resp.Result.URL)
	assert.True(t, resp.Result.Tags.HasGTM)
	require.NotNil(t, resp.System.LastScan)
	assert.Equal(t, resp.Result.Score, resp.System.LastScan.Score)
}

func TestScanErrors(t *testing.T) {
	client, conn := startServer(t, state.NewMemoryStore(), orchestrator.WithFetcher(fetchFails{}))
	ctx := context.Background()

	_, err := client.Scan(ctx, "", "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Scan(ctx, "acme.test", "")
	assert.Equal(t, codes.Unavailable, status.Code(err))

	in, err := toStruct(map[string]any{"url": "acme.test", "type": "social"})
	require.NoError(t, err)
	err = conn.Invoke(ctx, MethodScan, in, new(structpb.Struct))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCreateDecision(t *testing.T) {
	client, _ := startServer(t, state.NewMemoryStore())
	ctx := context.Background()

	resp, err := client.CreateDecision(ctx, orchestrator.NewDecision{
		Name:              "Expand paid social",
		Category:          decisions.CategoryScaling,
		RequiredSignalIDs: []string{"sig_signal_integrity"},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Decision.ID, "dec_")
	assert.Equal(t, decisions.StatusBlind, resp.Decision.Status)
	assert.Equal(t, 7, resp.System.Stats.Total)

	_, err = client.CreateDecision(ctx, orchestrator.NewDecision{Name: "bad", Category: "tarot"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestReset(t *testing.T) {
	client, _ := startServer(t, state.NewMemoryStore())
	ctx := context.Background()

	_, err := client.Track(ctx, "login", 1)
	require.NoError(t, err)
	resp, err := client.Reset(ctx)
	require.NoError(t, err)
	assert.Empty(t, resp.System.RecentEvents)
	assert.Equal(t, 6, resp.System.Stats.Blind)
}

func TestPersistFailureStillAnswers(t *testing.T) {
	client, _ := startServer(t, saveFails{state.NewMemoryStore()})

	resp, err := client.Track(context.Background(), "wizard_complete", 1)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.False(t, resp.Persisted)
	assert.Equal(t, 1, resp.System.Stats.Clear)
}

func TestHealth(t *testing.T) {
	_, conn := startServer(t, state.NewMemoryStore())

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(),
		&grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}
