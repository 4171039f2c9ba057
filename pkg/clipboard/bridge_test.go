package clipboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/entrhq/hoverpilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingProvider holds every text read until released.
type blockingProvider struct {
	MemoryProvider
	release chan struct{}
	once    sync.Once
}

func newBlockingProvider(text string) *blockingProvider {
	p := &blockingProvider{release: make(chan struct{})}
	_ = p.WriteText(text)
	return p
}

func (p *blockingProvider) ReadText() (string, error) {
	<-p.release
	return p.MemoryProvider.ReadText()
}

func (p *blockingProvider) Release() {
	p.once.Do(func() { close(p.release) })
}

func TestBridge_Request(t *testing.T) {
	tests := []struct {
		name        string
		image       string
		text        string
		wantKind    types.PasteKind
		wantPayload string
	}{
		{name: "text", text: "copied words", wantKind: types.PasteKindText, wantPayload: "copied words"},
		{name: "image first", image: "data:image/png;base64,AAAA", text: "ignored", wantKind: types.PasteKindImage, wantPayload: "data:image/png;base64,AAAA"},
		{name: "empty clipboard", wantKind: types.PasteKindNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &MemoryProvider{}
			if tt.text != "" {
				require.NoError(t, provider.WriteText(tt.text))
			}
			if tt.image != "" {
				require.NoError(t, provider.WriteImage(tt.image))
			}

			b := NewBridge(provider, time.Second, nil)
			resp, err := b.Request(context.Background(), types.PasteRequest{RequestID: "req-1", Kind: "paste"})
			require.NoError(t, err)

			assert.Equal(t, "req-1", resp.RequestID)
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.Equal(t, tt.wantPayload, resp.Payload)
			assert.Zero(t, b.Pending())
		})
	}
}

func TestBridge_TimeoutResolvesToNoData(t *testing.T) {
	provider := newBlockingProvider("too late")
	defer provider.Release()

	timeout := 50 * time.Millisecond
	b := NewBridge(provider, timeout, nil)

	start := time.Now()
	resp, err := b.Request(context.Background(), types.PasteRequest{RequestID: "slow", Kind: "paste"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, types.NoData("slow"), resp)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Zero(t, b.Pending())

	// The late read must not resurrect or answer the settled request.
	assert.False(t, b.Resolve(types.PasteResponse{RequestID: "slow", Kind: types.PasteKindText, Payload: "too late"}))
	provider.Release()
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, b.Pending())

	// The in-flight slot was released.
	resp, err = b.Request(context.Background(), types.PasteRequest{RequestID: "next", Kind: "paste"})
	require.NoError(t, err)
	assert.Equal(t, types.PasteKindText, resp.Kind)
}

func TestBridge_DefaultTimeout(t *testing.T) {
	b := NewBridge(&MemoryProvider{}, 0, nil)
	assert.Equal(t, 2000*time.Millisecond, b.Timeout())
}

func TestBridge_BusyWhileInFlight(t *testing.T) {
	provider := newBlockingProvider("first")
	b := NewBridge(provider, time.Second, nil)

	done := make(chan types.PasteResponse, 1)
	go func() {
		resp, _ := b.Request(context.Background(), types.PasteRequest{RequestID: "first", Kind: "paste"})
		done <- resp
	}()
	require.Eventually(t, func() bool { return b.Pending() == 1 }, time.Second, 5*time.Millisecond)

	resp, err := b.Request(context.Background(), types.PasteRequest{RequestID: "second", Kind: "paste"})
	assert.ErrorIs(t, err, ErrBusy)
	assert.False(t, resp.HasData())

	provider.Release()
	first := <-done
	assert.Equal(t, "first", first.Payload)
}

func TestBridge_ContextCancelled(t *testing.T) {
	provider := newBlockingProvider("never")
	defer provider.Release()

	b := NewBridge(provider, time.Minute, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	resp, err := b.Request(ctx, types.PasteRequest{RequestID: "c", Kind: "paste"})
	require.NoError(t, err)
	assert.False(t, resp.HasData())
	assert.Zero(t, b.Pending())
}

func TestBridge_ResolveUnknown(t *testing.T) {
	b := NewBridge(&MemoryProvider{}, time.Second, nil)
	assert.False(t, b.Resolve(types.NoData("nobody")))
}

func TestBridge_GeneratesRequestID(t *testing.T) {
	provider := &MemoryProvider{}
	require.NoError(t, provider.WriteText("abc"))
	b := NewBridge(provider, time.Second, nil)

	resp, err := b.Request(context.Background(), types.PasteRequest{Kind: "paste"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.RequestID)
}

func TestMemoryProvider(t *testing.T) {
	p := &MemoryProvider{}
	assert.False(t, p.HasImage())

	assert.Error(t, p.WriteImage("not-a-data-url"))
	require.NoError(t, p.WriteImage("data:image/png;base64,AAAA"))
	assert.True(t, p.HasImage())

	require.NoError(t, p.WriteText("text"))
	assert.False(t, p.HasImage())
	text, err := p.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "text", text)
}

func TestSystemProviderImagesUnsupported(t *testing.T) {
	p := NewSystemProvider()
	assert.False(t, p.HasImage())
	_, err := p.ReadImage()
	assert.ErrorIs(t, err, ErrImageUnsupported)
	assert.ErrorIs(t, p.WriteImage("data:image/png;base64,AAAA"), ErrImageUnsupported)
}
