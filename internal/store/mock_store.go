package store

import "github.com/evyataryagoni/geolookup/internal/models"

// MockStore is a test double for the Store interface.
// It records calls and can be told to fail.
type MockStore struct {
	// Data holds the mock records keyed by IP
	Data map[string]*models.GeoRecord

	FindByIPCalls []string
	CloseCalled   bool

	FindByIPError error
	CloseError    error
}

// NewMockStore creates a mock store holding the records the public service
// returns for Google DNS and for feod.lviv.ua.
func NewMockStore() *MockStore {
	return &MockStore{
		Data: map[string]*models.GeoRecord{
			"8.8.8.8": {
				IP:          "8.8.8.8",
				CountryCode: "US",
				CountryName: "United States",
				Latitude:    38,
				Longitude:   -97,
			},
			"89.184.73.151": {
				IP:          "89.184.73.151",
				CountryCode: "UA",
				CountryName: "Ukraine",
				RegionCode:  "46",
				RegionName:  "L'vivs'ka Oblast'",
				City:        "Lviv",
				Latitude:    49.8383,
				Longitude:   24.0232,
			},
		},
		FindByIPCalls: []string{},
	}
}

// NewEmptyMockStore creates a mock store with no data
func NewEmptyMockStore() *MockStore {
	return &MockStore{
		Data:          map[string]*models.GeoRecord{},
		FindByIPCalls: []string{},
	}
}

// FindByIP implements the Store interface
func (m *MockStore) FindByIP(ip string) (*models.GeoRecord, error) {
	m.FindByIPCalls = append(m.FindByIPCalls, ip)

	if m.FindByIPError != nil {
		return nil, m.FindByIPError
	}

	rec, exists := m.Data[ip]
	if !exists {
		return nil, ErrNotFound
	}

	// hand out a copy so callers cannot mutate the fixture
	out := *rec
	return &out, nil
}

// Close implements the Store interface
func (m *MockStore) Close() error {
	m.CloseCalled = true
	return m.CloseError
}
