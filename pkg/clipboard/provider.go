package clipboard

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
)

// ErrImageUnsupported is returned by providers without image access.
var ErrImageUnsupported = errors.New("clipboard images not supported")

// Provider is the host-privileged clipboard.
type Provider interface {
	HasImage() bool
	ReadImage() (dataURL string, err error)
	ReadText() (string, error)
	WriteImage(dataURL string) error
	WriteText(text string) error
}

// SystemProvider reads and writes the OS clipboard. Only text is available.
type SystemProvider struct{}

// NewSystemProvider returns a provider for the OS clipboard.
func NewSystemProvider() *SystemProvider {
	return &SystemProvider{}
}

// Available reports whether the platform clipboard tooling was found.
func (p *SystemProvider) Available() bool {
	return !clipboard.Unsupported
}

// HasImage implements Provider.
func (p *SystemProvider) HasImage() bool { return false }

// ReadImage implements Provider.
func (p *SystemProvider) ReadImage() (string, error) { return "", ErrImageUnsupported }

// WriteImage implements Provider.
func (p *SystemProvider) WriteImage(string) error { return ErrImageUnsupported }

// ReadText implements Provider.
func (p *SystemProvider) ReadText() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return text, nil
}

// WriteText implements Provider.
func (p *SystemProvider) WriteText(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

// MemoryProvider is an in-process clipboard holding one image and one text value.
type MemoryProvider struct {
	mu    sync.Mutex
	image string
	text  string
}

// HasImage implements Provider.
func (p *MemoryProvider) HasImage() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.image != ""
}

// ReadImage implements Provider.
func (p *MemoryProvider) ReadImage() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.image, nil
}

// ReadText implements Provider.
func (p *MemoryProvider) ReadText() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text, nil
}

// WriteImage implements Provider. Only data URLs are accepted.
func (p *MemoryProvider) WriteImage(dataURL string) error {
	if !strings.HasPrefix(dataURL, "data:image/") {
		return fmt.Errorf("not an image data URL")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.image = dataURL
	return nil
}

// WriteText implements Provider. Writing text clears any image.
func (p *MemoryProvider) WriteText(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text = text
	p.image = ""
	return nil
}
