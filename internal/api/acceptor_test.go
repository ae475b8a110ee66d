package api

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erilali/circd/internal/hub"
	"github.com/erilali/circd/internal/logger"
	"github.com/erilali/circd/internal/rpc"
)

type fakeDispatcher struct {
	mu      sync.Mutex
	posted  []rpc.Request
	called  []rpc.Request
	callErr error
	state   hub.State
}

func (d *fakeDispatcher) Call(ctx context.Context, req rpc.Request) (rpc.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.called = append(d.called, req)
	if d.callErr != nil {
		return nil, d.callErr
	}
	switch r := req.(type) {
	case rpc.ListChannels:
		return rpc.Channels{Names: []string{"#a"}}, nil
	case rpc.GetStatus:
		return rpc.Status{Channels: []rpc.ChannelStatus{{Name: "#a", Count: 2}, {Name: "#b", Count: 1}}}, nil
	case rpc.GetMessages:
		return rpc.Messages{Messages: []rpc.ClientMessage{}}, nil
	case rpc.GetUsers:
		return rpc.Users{Names: []string{}}, nil
	default:
		return rpc.ErrorResponse{Text: "unexpected " + string(r.Kind())}, nil
	}
}

func (d *fakeDispatcher) Post(ctx context.Context, req rpc.Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.posted = append(d.posted, req)
	return nil
}

func (d *fakeDispatcher) State() hub.State { return d.state }

func (d *fakeDispatcher) postedKinds() []rpc.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	kinds := make([]rpc.Kind, 0, len(d.posted))
	for _, r := range d.posted {
		kinds = append(kinds, r.Kind())
	}
	return kinds
}

// socketPath keeps the path short; Unix socket paths are limited in length.
func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "circd")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "sock")
}

func startAcceptor(t *testing.T, d Dispatcher) (*Acceptor, <-chan error) {
	t.Helper()
	a := NewAcceptor(socketPath(t), d, logger.Nop())
	require.NoError(t, a.Listen())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Serve(context.Background()) }()
	t.Cleanup(func() { a.Close() })
	return a, errCh
}

func roundTrip(t *testing.T, path string, req rpc.Request) (rpc.Response, error) {
	t.Helper()
	client := rpc.NewClient(path)
	client.Timeout = 2 * time.Second
	return client.Do(context.Background(), req)
}

func waitServe(t *testing.T, errCh <-chan error) {
	t.Helper()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestAcceptorAnswersRequests(t *testing.T) {
	d := &fakeDispatcher{}
	a, _ := startAcceptor(t, d)

	tests := []struct {
		req  rpc.Request
		want rpc.Kind
	}{
		{rpc.ListChannels{}, rpc.KindChannels},
		{rpc.GetStatus{}, rpc.KindStatus},
		{rpc.GetMessages{Channel: "#a"}, rpc.KindMessages},
		{rpc.GetUsers{Channel: "#a"}, rpc.KindUsers},
	}
	for _, tt := range tests {
		t.Run(string(tt.req.Kind()), func(t *testing.T) {
			resp, err := roundTrip(t, a.Path(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Kind())
		})
	}
}

func TestAcceptorPostsFireAndForget(t *testing.T) {
	d := &fakeDispatcher{}
	a, _ := startAcceptor(t, d)

	for _, req := range []rpc.Request{
		rpc.Join{Channel: "#a"},
		rpc.SendMessage{Channel: "#a", Text: "hi"},
		rpc.Part{Channel: "#a"},
	} {
		resp, err := roundTrip(t, a.Path(), req)
		require.NoError(t, err)
		assert.Nil(t, resp)
	}

	assert.Eventually(t, func() bool { return len(d.postedKinds()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []rpc.Kind{rpc.KindJoin, rpc.KindSendMessage, rpc.KindPart}, d.postedKinds())
}

func TestAcceptorQuitStopsServing(t *testing.T) {
	d := &fakeDispatcher{}
	a, errCh := startAcceptor(t, d)

	_, err := roundTrip(t, a.Path(), rpc.Quit{})
	require.NoError(t, err)
	waitServe(t, errCh)

	assert.Equal(t, []rpc.Kind{rpc.KindQuit}, d.postedKinds())

	_, err = net.Dial("unix", a.Path())
	assert.Error(t, err)
}

func TestAcceptorDropsUndecodableRequest(t *testing.T) {
	d := &fakeDispatcher{}
	a, _ := startAcceptor(t, d)

	conn, err := net.Dial("unix", a.Path())
	require.NoError(t, err)
	require.NoError(t, rpc.WriteFrame(conn, []byte(`{"type":"Bogus"}`)))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	assert.Error(t, err, "connection should be closed without a response")
	conn.Close()

	// The acceptor keeps going.
	resp, err := roundTrip(t, a.Path(), rpc.ListChannels{})
	require.NoError(t, err)
	assert.Equal(t, rpc.KindChannels, resp.Kind())
}

func TestAcceptorRepliesErrorWhenStopped(t *testing.T) {
	d := &fakeDispatcher{callErr: hub.ErrStopped}
	a, _ := startAcceptor(t, d)

	resp, err := roundTrip(t, a.Path(), rpc.ListChannels{})
	require.NoError(t, err)
	require.IsType(t, rpc.ErrorResponse{}, resp)
	assert.Equal(t, "circd is shutting down", resp.(rpc.ErrorResponse).Text)
}

func TestAcceptorRemovesStaleSocket(t *testing.T) {
	path := socketPath(t)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	a := NewAcceptor(path, &fakeDispatcher{}, logger.Nop())
	require.NoError(t, a.Listen())
	defer a.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.ModeSocket, info.Mode()&os.ModeSocket)
}

func TestAcceptorBindError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	a := NewAcceptor(filepath.Join(blocker, "sock"), &fakeDispatcher{}, logger.Nop())
	err := a.Listen()
	require.Error(t, err)
	var bindErr *BindError
	assert.True(t, errors.As(err, &bindErr))
}

func TestAcceptorCloseRemovesSocket(t *testing.T) {
	a, errCh := startAcceptor(t, &fakeDispatcher{})
	require.NoError(t, a.Close())
	waitServe(t, errCh)

	_, err := os.Stat(a.Path())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestAcceptorStopsOnContext(t *testing.T) {
	a := NewAcceptor(socketPath(t), &fakeDispatcher{}, logger.Nop())
	require.NoError(t, a.Listen())
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Serve(ctx) }()
	cancel()
	waitServe(t, errCh)
}

func (a *Acceptor) waitingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.waiting)
}

func TestAcceptorQuitWithIdleClient(t *testing.T) {
	a, errCh := startAcceptor(t, &fakeDispatcher{})

	idle, err := net.Dial("unix", a.Path())
	require.NoError(t, err)
	defer idle.Close()
	require.Eventually(t, func() bool { return a.waitingCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err = roundTrip(t, a.Path(), rpc.Quit{})
	require.NoError(t, err)
	waitServe(t, errCh)

	// The idle connection was dropped without a response.
	_ = idle.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = idle.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestAcceptorCloseWithIdleClient(t *testing.T) {
	a, errCh := startAcceptor(t, &fakeDispatcher{})

	idle, err := net.Dial("unix", a.Path())
	require.NoError(t, err)
	defer idle.Close()
	require.Eventually(t, func() bool { return a.waitingCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, a.Close())
	waitServe(t, errCh)
	assert.Zero(t, a.waitingCount())
}
