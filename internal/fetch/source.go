// Package fetch retrieves bin and truck snapshots and keeps the last good one.
package fetch

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/binmap/backend/internal/models"
	"gopkg.in/yaml.v3"
)

var (
	// ErrBadStatus is returned for any non-2xx response.
	ErrBadStatus = errors.New("unexpected response status")
	// ErrDecode is returned when the body is not a valid envelope.
	ErrDecode = errors.New("malformed response body")
)

//go:embed mock_trucks.yaml
var defaultTruckData []byte

// Entity is a record that can be checked after decoding.
type Entity interface {
	Validate() error
}

// Source produces one full snapshot per call.
type Source[T any] interface {
	Fetch(ctx context.Context) ([]T, error)
}

// HTTPSource GETs a fixed endpoint returning `{ "data": [...] }`.
type HTTPSource[T Entity] struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a source for url. A zero timeout means requests are
// bounded only by the caller's context.
func NewHTTPSource[T Entity](url string, timeout time.Duration) *HTTPSource[T] {
	return &HTTPSource[T]{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// URL returns the endpoint being polled.
func (s *HTTPSource[T]) URL() string {
	return s.url
}

// Fetch performs one GET and decodes the envelope.
func (s *HTTPSource[T]) Fetch(ctx context.Context) ([]T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	var env models.Envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return checked(env)
}

// FileSource reads a mock dataset with the same envelope shape from disk.
// The file may be YAML or JSON. An empty path serves the built-in dataset.
type FileSource[T Entity] struct {
	path string
}

// NewFileSource creates a file-backed source.
func NewFileSource[T Entity](path string) *FileSource[T] {
	return &FileSource[T]{path: path}
}

// Fetch re-reads the file on every call so edits show up on the next poll.
func (s *FileSource[T]) Fetch(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := defaultTruckData
	if s.path != "" {
		var err error
		data, err = os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.path, err)
		}
	}
	return DecodeEnvelope[T](data)
}

// DecodeEnvelope parses a YAML or JSON envelope.
func DecodeEnvelope[T Entity](data []byte) ([]T, error) {
	var env models.Envelope[T]
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return checked(env)
}

func checked[T Entity](env models.Envelope[T]) ([]T, error) {
	if env.Data == nil {
		return nil, fmt.Errorf("%w: missing data field", ErrDecode)
	}
	for _, e := range env.Data {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}
	return env.Data, nil
}
