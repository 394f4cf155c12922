// Package codec encodes and decodes GeoRecords in the three wire formats the
// lookup service speaks. The byte layout matches the live service exactly:
// XML is indented by one space and ends with a newline, CSV is a single line
// of quoted fields without a trailing newline.
package codec

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/evyataryagoni/geolookup/internal/models"
)

// ErrUnsupportedFormat is returned for any format other than json, xml or csv
var ErrUnsupportedFormat = errors.New("unsupported response format")

// xmlRecord gives GeoRecord its Response root element
type xmlRecord struct {
	XMLName xml.Name `xml:"Response"`
	models.GeoRecord
}

// Encode serializes rec in the given format
func Encode(format models.Format, rec models.GeoRecord) ([]byte, error) {
	switch format {
	case models.FormatJSON:
		return encodeJSON(rec)
	case models.FormatXML:
		return encodeXML(rec)
	case models.FormatCSV:
		return encodeCSV(rec), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Decode parses body as a GeoRecord in the given format
func Decode(format models.Format, body []byte) (models.GeoRecord, error) {
	switch format {
	case models.FormatJSON:
		var rec models.GeoRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return models.GeoRecord{}, fmt.Errorf("failed to decode JSON record: %w", err)
		}
		return rec, nil
	case models.FormatXML:
		var rec xmlRecord
		if err := xml.Unmarshal(body, &rec); err != nil {
			return models.GeoRecord{}, fmt.Errorf("failed to decode XML record: %w", err)
		}
		return rec.GeoRecord, nil
	case models.FormatCSV:
		return decodeCSV(body)
	default:
		return models.GeoRecord{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func encodeJSON(rec models.GeoRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("failed to encode JSON record: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeXML(rec models.GeoRecord) ([]byte, error) {
	body, err := xml.MarshalIndent(xmlRecord{GeoRecord: rec}, "", " ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode XML record: %w", err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

func encodeCSV(rec models.GeoRecord) []byte {
	fields := []string{
		rec.IP,
		rec.CountryCode,
		rec.CountryName,
		rec.RegionCode,
		rec.RegionName,
		rec.City,
		rec.ZipCode,
		strconv.FormatFloat(rec.Latitude, 'f', 4, 64),
		strconv.FormatFloat(rec.Longitude, 'f', 4, 64),
		rec.MetroCode,
		rec.AreaCode,
	}
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	return []byte(b.String())
}

func decodeCSV(body []byte) (models.GeoRecord, error) {
	fields, err := SplitCSV(body)
	if err != nil {
		return models.GeoRecord{}, err
	}
	if len(fields) != models.RecordFieldCount {
		return models.GeoRecord{}, fmt.Errorf("expected %d CSV fields, got %d", models.RecordFieldCount, len(fields))
	}

	lat, err := parseCoordinate(fields[7])
	if err != nil {
		return models.GeoRecord{}, fmt.Errorf("invalid latitude %q: %w", fields[7], err)
	}
	lon, err := parseCoordinate(fields[8])
	if err != nil {
		return models.GeoRecord{}, fmt.Errorf("invalid longitude %q: %w", fields[8], err)
	}

	return models.GeoRecord{
		IP:          fields[0],
		CountryCode: fields[1],
		CountryName: fields[2],
		RegionCode:  fields[3],
		RegionName:  fields[4],
		City:        fields[5],
		ZipCode:     fields[6],
		Latitude:    lat,
		Longitude:   lon,
		MetroCode:   fields[9],
		AreaCode:    fields[10],
	}, nil
}

func parseCoordinate(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// SplitCSV returns the fields of the single record in body.
// Quoting is honoured, so a comma inside a quoted field does not split it.
func SplitCSV(body []byte) ([]string, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	record, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty CSV body")
		}
		return nil, fmt.Errorf("failed to read CSV record: %w", err)
	}
	if _, err := reader.Read(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("expected a single CSV record")
	}
	return record, nil
}

// XMLElementNames returns the root element name and the names of its direct
// children in document order.
func XMLElementNames(body []byte) (string, []string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var root string
	var children []string
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("malformed XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch depth {
			case 0:
				if root != "" {
					return "", nil, fmt.Errorf("malformed XML: multiple root elements")
				}
				root = t.Name.Local
			case 1:
				children = append(children, t.Name.Local)
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}

	if root == "" {
		return "", nil, fmt.Errorf("malformed XML: no root element")
	}
	return root, children, nil
}

// JSONKeys returns the top-level keys of a JSON object body
func JSONKeys(body []byte) ([]string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("body is not a JSON object: %w", err)
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	return keys, nil
}
