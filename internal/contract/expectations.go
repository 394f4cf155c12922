package contract

import (
	"fmt"
	"os"

	"github.com/evyataryagoni/geolookup/internal/models"
	"gopkg.in/yaml.v3"
)

// Expectations are the literal values the suite compares responses against.
// Defaults describe the public service; a YAML file may override any of them.
type Expectations struct {
	KnownIP     string           `yaml:"known_ip"`
	KnownRecord models.GeoRecord `yaml:"known_record"`
	XMLLiteral  string           `yaml:"xml_literal"`
	CSVLiteral  string           `yaml:"csv_literal"`

	UnsupportedFormat string `yaml:"unsupported_format"`
	InvalidIP         string `yaml:"invalid_ip"`
	FallbackMarker    string `yaml:"fallback_marker"`

	KnownHostname   string `yaml:"known_hostname"`
	KnownHostnameIP string `yaml:"known_hostname_ip"`
	UnknownHostname string `yaml:"unknown_hostname"`
}

// DefaultExpectations returns the expectations for Google's public DNS
// resolver as served by the public service.
func DefaultExpectations() Expectations {
	return Expectations{
		KnownIP: "8.8.8.8",
		KnownRecord: models.GeoRecord{
			IP:          "8.8.8.8",
			CountryCode: "US",
			CountryName: "United States",
			Latitude:    38,
			Longitude:   -97,
		},
		XMLLiteral: `<?xml version="1.0" encoding="UTF-8"?>
<Response>
 <Ip>8.8.8.8</Ip>
 <CountryCode>US</CountryCode>
 <CountryName>United States</CountryName>
 <RegionCode></RegionCode>
 <RegionName></RegionName>
 <City></City>
 <ZipCode></ZipCode>
 <Latitude>38</Latitude>
 <Longitude>-97</Longitude>
 <MetroCode></MetroCode>
 <AreaCode></AreaCode>
</Response>
`,
		CSVLiteral: `"8.8.8.8","US","United States","","","","","38.0000","-97.0000","",""`,

		UnsupportedFormat: "invalid",
		InvalidIP:         "345.678.123.890",
		FallbackMarker:    "<!doctype html>",

		KnownHostname:   "feod.lviv.ua",
		KnownHostnameIP: "89.184.73.151",
		UnknownHostname: "minutevare.net",
	}
}

// LoadExpectations reads overrides from a YAML file on top of the defaults.
// An empty path returns the defaults.
func LoadExpectations(path string) (Expectations, error) {
	exp := DefaultExpectations()
	if path == "" {
		return exp, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return exp, fmt.Errorf("failed to read expectations: %w", err)
	}
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return exp, fmt.Errorf("failed to parse expectations %s: %w", path, err)
	}
	return exp, nil
}
