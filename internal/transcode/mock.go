package transcode

import (
	"context"
	"sync"

	"github.com/craftscan/craftscan/internal/models"
)

// Call records one mock transcode invocation.
type Call struct {
	Input  []byte
	Format models.AudioFormat
}

// Mock is a test transcoder that tags input bytes with the format.
type Mock struct {
	mu    sync.Mutex
	calls []Call

	// Err, when set, fails every call.
	Err error
}

// NewMock creates a mock transcoder.
func NewMock() *Mock {
	return &Mock{}
}

// Transcode records the call and returns input prefixed with the
// format so tests can assert the conversion happened.
func (m *Mock) Transcode(_ context.Context, input []byte, format models.AudioFormat) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Input: input, Format: format})
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if format == models.AudioOriginal || format == "" {
		return input, nil
	}
	return append([]byte(string(format)+":"), input...), nil
}

// Calls returns the recorded invocations.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}
