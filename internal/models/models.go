package models

import "strings"

// Format selects the serialization of a lookup response.
// It is embedded in the request path as the first segment.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatCSV  Format = "csv"
)

// Formats lists the structured formats in the order the service documents them
var Formats = []Format{FormatJSON, FormatXML, FormatCSV}

// ParseFormat maps a path segment to a Format.
// Matching is exact: the service treats "JSON" as an unsupported format.
func ParseFormat(s string) (Format, bool) {
	for _, f := range Formats {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// ContentType returns the MIME type the service sends for this format
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXML:
		return "application/xml"
	case FormatCSV:
		return "text/csv"
	default:
		return "text/plain"
	}
}

// GeoRecord is the eleven-field IP-to-location record.
// Field order here is the wire order for XML and CSV.
type GeoRecord struct {
	IP          string  `json:"ip" xml:"Ip" yaml:"ip"`
	CountryCode string  `json:"country_code" xml:"CountryCode" yaml:"country_code"`
	CountryName string  `json:"country_name" xml:"CountryName" yaml:"country_name"`
	RegionCode  string  `json:"region_code" xml:"RegionCode" yaml:"region_code"`
	RegionName  string  `json:"region_name" xml:"RegionName" yaml:"region_name"`
	City        string  `json:"city" xml:"City" yaml:"city"`
	ZipCode     string  `json:"zipcode" xml:"ZipCode" yaml:"zipcode"`
	Latitude    float64 `json:"latitude" xml:"Latitude" yaml:"latitude"`
	Longitude   float64 `json:"longitude" xml:"Longitude" yaml:"longitude"`
	MetroCode   string  `json:"metro_code" xml:"MetroCode" yaml:"metro_code"`
	AreaCode    string  `json:"areacode" xml:"AreaCode" yaml:"areacode"`
}

// RecordFieldCount is the number of scalar fields in a GeoRecord
const RecordFieldCount = 11

// JSONKeys are the object keys of a JSON-encoded GeoRecord, in field order
var JSONKeys = []string{
	"ip", "country_code", "country_name", "region_code", "region_name",
	"city", "zipcode", "latitude", "longitude", "metro_code", "areacode",
}

// XMLElements are the child elements of the Response root, in document order
var XMLElements = []string{
	"Ip", "CountryCode", "CountryName", "RegionCode", "RegionName",
	"City", "ZipCode", "Latitude", "Longitude", "MetroCode", "AreaCode",
}

// LookupRequest holds the two optional path segments of a lookup
type LookupRequest struct {
	HostOrIP string
	Format   string
}

// Path renders the request path the way the service expects it: /<format>/<host>.
// Both segments may be empty.
func (r LookupRequest) Path() string {
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(r.Format)
	b.WriteString("/")
	b.WriteString(r.HostOrIP)
	return b.String()
}

// LookupResponse is the status code and raw body of a lookup, untouched
type LookupResponse struct {
	StatusCode int
	Body       string
}

// ErrorResponse is the body returned for failed lookups in JSON
type ErrorResponse struct {
	Error string `json:"error"`
}
