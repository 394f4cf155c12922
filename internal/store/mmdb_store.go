package store

import (
	"fmt"
	"net"
	"strconv"

	"github.com/evyataryagoni/geolookup/internal/models"
	"github.com/oschwald/geoip2-golang"
)

// MMDBStore implements Store on a MaxMind GeoIP2/GeoLite2 City database,
// which is what the public freegeoip deployments are built on.
type MMDBStore struct {
	reader *geoip2.Reader
}

// NewMMDBStore opens the .mmdb file at path
func NewMMDBStore(path string) (*MMDBStore, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mmdb file: %w", err)
	}
	return &MMDBStore{reader: reader}, nil
}

// FindByIP implements the Store interface.
// Addresses the database knows nothing about are reported as ErrNotFound.
func (s *MMDBStore) FindByIP(ip string) (*models.GeoRecord, error) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return nil, fmt.Errorf("invalid IP address %q", ip)
	}

	city, err := s.reader.City(addr)
	if err != nil {
		return nil, fmt.Errorf("mmdb lookup failed: %w", err)
	}
	if city.Country.IsoCode == "" && city.Location.Latitude == 0 && city.Location.Longitude == 0 {
		return nil, ErrNotFound
	}

	return recordFromCity(ip, city), nil
}

// recordFromCity flattens a GeoIP2 City record into the eleven-field shape,
// using English names.
func recordFromCity(ip string, city *geoip2.City) *models.GeoRecord {
	rec := &models.GeoRecord{
		IP:          ip,
		CountryCode: city.Country.IsoCode,
		CountryName: city.Country.Names["en"],
		City:        city.City.Names["en"],
		ZipCode:     city.Postal.Code,
		Latitude:    city.Location.Latitude,
		Longitude:   city.Location.Longitude,
	}
	if len(city.Subdivisions) > 0 {
		rec.RegionCode = city.Subdivisions[0].IsoCode
		rec.RegionName = city.Subdivisions[0].Names["en"]
	}
	if city.Location.MetroCode != 0 {
		rec.MetroCode = strconv.FormatUint(uint64(city.Location.MetroCode), 10)
	}
	return rec
}

// Close releases the memory-mapped database
func (s *MMDBStore) Close() error {
	if s.reader != nil {
		return s.reader.Close()
	}
	return nil
}
