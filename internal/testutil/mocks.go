package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/extract"
)

// ErrSimulated is a sentinel error for testing error handling paths
var ErrSimulated = errors.New("simulated error for testing")

// CountingExtractor реализует extract.Extractor для unit тестов: отдаёт заранее
// заданные дескрипторы по тексту описания и считает вызовы.
type CountingExtractor struct {
	mu      sync.RWMutex
	byText  map[string][]effect.Descriptor
	failing map[string]error
	delay   time.Duration

	calls atomic.Int32
}

// NewCountingExtractor создаёт экстрактор без ответов: неизвестный текст
// даёт пустой список эффектов.
func NewCountingExtractor() *CountingExtractor {
	return &CountingExtractor{
		byText:  make(map[string][]effect.Descriptor),
		failing: make(map[string]error),
	}
}

// Answer задаёт дескрипторы для текста описания.
func (m *CountingExtractor) Answer(description string, descs ...effect.Descriptor) *CountingExtractor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byText[description] = descs
	return m
}

// Fail заставляет экстрактор возвращать err для текста описания.
func (m *CountingExtractor) Fail(description string, err error) *CountingExtractor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[description] = err
	return m
}

// WithDelay задерживает каждый вызов, чтобы конкурентные запросы пересеклись.
func (m *CountingExtractor) WithDelay(d time.Duration) *CountingExtractor {
	m.delay = d
	return m
}

// Extract реализует extract.Extractor.
func (m *CountingExtractor) Extract(ctx context.Context, req extract.Request) ([]effect.Descriptor, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.failing[req.DescriptionText]; ok {
		return nil, errors.Join(extract.ErrExtractionFailed, err)
	}
	return m.byText[req.DescriptionText], nil
}

// Calls возвращает количество вызовов Extract.
func (m *CountingExtractor) Calls() int {
	return int(m.calls.Load())
}
