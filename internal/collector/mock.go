package collector

import (
	"context"
	"sync"

	"github.com/go-gota/gota/dataframe"
)

// MockTimeSeries returns a fixed payload or error, for development and testing.
type MockTimeSeries struct {
	Payload []byte
	Err     error

	mu       sync.Mutex
	Requests []TimeSeriesRequest
}

func (m *MockTimeSeries) Name() string { return "mock" }

func (m *MockTimeSeries) FetchTimeSeries(_ context.Context, req TimeSeriesRequest) ([]byte, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Payload, nil
}

// MockTable returns a fixed table or error.
type MockTable struct {
	Table *dataframe.DataFrame
	Err   error

	mu       sync.Mutex
	Requests []TableRequest
}

func (m *MockTable) Name() string { return "mock" }

func (m *MockTable) FetchTable(_ context.Context, req TableRequest) (*dataframe.DataFrame, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Table, nil
}

// LastRequest returns the most recent request, if any.
func (m *MockTable) LastRequest() (TableRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return TableRequest{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}
