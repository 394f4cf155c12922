package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/evyataryagoni/geolookup/internal/models"
)

// CSVStore implements Store with a CSV dataset held in memory.
//
// Format: a header row, then one record per line with the eleven columns
// ip,country_code,country_name,region_code,region_name,city,zipcode,latitude,longitude,metro_code,areacode
type CSVStore struct {
	data map[string]*models.GeoRecord
}

// NewCSVStore loads the CSV file at filePath
func NewCSVStore(filePath string) (*CSVStore, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return NewCSVStoreFromReader(file)
}

// NewCSVStoreFromReader loads a CSV dataset from r
func NewCSVStoreFromReader(r io.Reader) (*CSVStore, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	store := &CSVStore{
		data: make(map[string]*models.GeoRecord),
	}

	for i, record := range records {
		// header
		if i == 0 {
			continue
		}

		rec, err := parseCSVRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		store.data[rec.IP] = rec
	}

	return store, nil
}

func parseCSVRecord(record []string) (*models.GeoRecord, error) {
	if len(record) != models.RecordFieldCount {
		return nil, fmt.Errorf("expected %d columns, got %d", models.RecordFieldCount, len(record))
	}
	if record[0] == "" {
		return nil, fmt.Errorf("missing ip column")
	}

	lat, err := parseFloat(record[7])
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", record[7], err)
	}
	lon, err := parseFloat(record[8])
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", record[8], err)
	}

	return &models.GeoRecord{
		IP:          record[0],
		CountryCode: record[1],
		CountryName: record[2],
		RegionCode:  record[3],
		RegionName:  record[4],
		City:        record[5],
		ZipCode:     record[6],
		Latitude:    lat,
		Longitude:   lon,
		MetroCode:   record[9],
		AreaCode:    record[10],
	}, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// FindByIP implements the Store interface
func (s *CSVStore) FindByIP(ip string) (*models.GeoRecord, error) {
	rec, exists := s.data[ip]
	if !exists {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

// Records returns every record ordered by IP string
func (s *CSVStore) Records() []models.GeoRecord {
	out := make([]models.GeoRecord, 0, len(s.data))
	for _, rec := range s.data {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IP < out[j].IP })
	return out
}

// Len returns the number of records
func (s *CSVStore) Len() int {
	return len(s.data)
}

// Close implements the Store interface; the data is all in memory
func (s *CSVStore) Close() error {
	return nil
}
