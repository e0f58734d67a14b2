package testutil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odyn/internal/request"
	"github.com/roach88/odyn/internal/transport"
)

func TestStubTransport_RouteAndQueue(t *testing.T) {
	stub := NewStubTransport().
		On(http.MethodGet, "http://svc/Products", StubResponse{Body: "routed"}).
		Enqueue(StubResponse{Status: http.StatusCreated, Body: "queued"})

	resp, err := stub.Do(context.Background(), &request.Prepared{Method: http.MethodGet, URL: "http://svc/Products"})
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "routed", string(body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = stub.Do(context.Background(), &request.Prepared{Method: http.MethodPost, URL: "http://svc/Products"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	_, err = stub.Do(context.Background(), &request.Prepared{Method: http.MethodPost, URL: "http://svc/Products"})
	require.Error(t, err, "queue is exhausted")

	assert.Len(t, stub.Calls(), 3)
	assert.False(t, stub.AllClosed())
}

func TestStubTransport_ErrorStatus(t *testing.T) {
	stub := NewStubTransport().Enqueue(StubResponse{Status: http.StatusNotFound, Body: "missing"})

	_, err := stub.Do(context.Background(), &request.Prepared{Method: http.MethodGet, URL: "http://svc/Products(9)"})
	require.Error(t, err)
	assert.True(t, transport.IsNotFound(err))
	assert.True(t, stub.AllClosed(), "error bodies are closed by the transport")
}

func TestStubTransport_TransportError(t *testing.T) {
	stub := NewStubTransport().Enqueue(StubResponse{Err: ErrConnectionRefused})

	_, err := stub.Do(context.Background(), &request.Prepared{Method: http.MethodGet, URL: "http://svc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionRefused)
	assert.Zero(t, transport.StatusCode(err))
}

func TestStubTransport_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStubTransport().Do(ctx, &request.Prepared{Method: http.MethodGet, URL: "http://svc"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrackingBody(t *testing.T) {
	b := NewTrackingBody("hello")
	buf := make([]byte, 2)
	n, err := b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(2), b.BytesRead())

	require.NoError(t, b.Close())
	assert.True(t, b.Closed())
	_, err = b.Read(buf)
	assert.Error(t, err)
}

func TestFailAfter(t *testing.T) {
	data, err := io.ReadAll(FailAfter("abc"))
	assert.Equal(t, "abc", string(data))
	assert.True(t, errors.Is(err, ErrInjected))
}

func TestSteppingClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewSteppingClock(start, time.Second)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Second), c.Now())

	c.Reset()
	assert.Equal(t, start, c.Now())
}

func TestSequentialIDGenerator(t *testing.T) {
	g := NewSequentialIDGenerator("")
	assert.Equal(t, "req-0001", g.Generate())
	assert.Equal(t, "req-0002", g.Generate())

	custom := NewSequentialIDGenerator("scn")
	assert.Equal(t, "scn-0001", custom.Generate())
}

func TestSequentialIDGenerator_ThreadSafe(t *testing.T) {
	g := NewSequentialIDGenerator("t")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := g.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
}
