// Package contract checks a geolocation service against the behaviour its
// clients rely on: record contents, exact wire layouts, and the status codes
// returned for malformed or unresolvable queries.
package contract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/evyataryagoni/geolookup/internal/codec"
	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/models"
)

// ErrMismatch marks a response that reached the suite but differs from the
// expectation, as opposed to a transport failure.
var ErrMismatch = errors.New("contract mismatch")

// Lookuper issues a single lookup; satisfied by client.GeoLookupClient
type Lookuper interface {
	Lookup(ctx context.Context, hostOrIP, format string) (*models.LookupResponse, error)
}

// CallerIP reports the public address of this process; satisfied by
// client.IPEchoClient
type CallerIP interface {
	MyIP(ctx context.Context) (string, error)
}

// Check is one named property of the service
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result is the outcome of one check
type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Passed reports whether the check succeeded
func (r Result) Passed() bool {
	return r.Err == nil
}

// Suite runs the checks against one service
type Suite struct {
	client Lookuper
	echo   CallerIP
	exp    Expectations
	logger *logger.Logger
}

// NewSuite creates a suite; log may be nil
func NewSuite(c Lookuper, echo CallerIP, exp Expectations, log *logger.Logger) *Suite {
	if log == nil {
		log = logger.Nop()
	}
	return &Suite{
		client: c,
		echo:   echo,
		exp:    exp,
		logger: log.WithComponent("contract"),
	}
}

// Checks lists every check in execution order
func (s *Suite) Checks() []Check {
	return []Check{
		{"json_record", s.checkJSONRecord},
		{"xml_well_formed", s.checkXMLWellFormed},
		{"xml_element_order", s.checkXMLElementOrder},
		{"xml_literal", s.checkXMLLiteral},
		{"csv_field_count", s.checkCSVFieldCount},
		{"csv_literal", s.checkCSVLiteral},
		{"unsupported_format", s.checkUnsupportedFormat},
		{"empty_format", s.checkEmptyFormat},
		{"invalid_ip", s.checkInvalidIP},
		{"empty_ip_is_caller", s.checkEmptyIPIsCaller},
		{"fallback_page", s.checkFallbackPage},
		{"known_hostname", s.checkKnownHostname},
		{"unknown_hostname", s.checkUnknownHostname},
	}
}

// Run executes every check one after another and returns all results.
// A cancelled context fails the remaining checks rather than skipping them.
func (s *Suite) Run(ctx context.Context) []Result {
	checks := s.Checks()
	results := make([]Result, 0, len(checks))

	for _, c := range checks {
		start := time.Now()
		err := c.Run(ctx)
		res := Result{Name: c.Name, Err: err, Duration: time.Since(start)}
		results = append(results, res)

		if err != nil {
			s.logger.Warn().Str("check", c.Name).Err(err).Dur("duration", res.Duration).Msg("Check failed")
		} else {
			s.logger.Debug().Str("check", c.Name).Dur("duration", res.Duration).Msg("Check passed")
		}
	}

	s.logger.Info().
		Int("checks", len(results)).
		Int("failed", len(Failed(results))).
		Msg("Contract suite finished")

	return results
}

// Failed filters results down to the failures
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed() {
			failed = append(failed, r)
		}
	}
	return failed
}

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMismatch, fmt.Sprintf(format, args...))
}

// fetch performs a lookup and requires the given status
func (s *Suite) fetch(ctx context.Context, hostOrIP, format string, wantStatus int) (*models.LookupResponse, error) {
	resp, err := s.client.Lookup(ctx, hostOrIP, format)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != wantStatus {
		return nil, mismatch("GET /%s/%s: status %d, want %d", format, hostOrIP, resp.StatusCode, wantStatus)
	}
	return resp, nil
}

func (s *Suite) checkJSONRecord(ctx context.Context) error {
	resp, err := s.fetch(ctx, s.exp.KnownIP, string(models.FormatJSON), http.StatusOK)
	if err != nil {
		return err
	}

	keys, err := codec.JSONKeys([]byte(resp.Body))
	if err != nil {
		return mismatch("%v", err)
	}
	slices.Sort(keys)
	want := slices.Clone(models.JSONKeys)
	slices.Sort(want)
	if !slices.Equal(keys, want) {
		return mismatch("json keys %v, want %v", keys, want)
	}

	rec, err := codec.Decode(models.FormatJSON, []byte(resp.Body))
	if err != nil {
		return mismatch("%v", err)
	}
	if rec != s.exp.KnownRecord {
		return mismatch("json record %+v, want %+v", rec, s.exp.KnownRecord)
	}
	return nil
}

func (s *Suite) checkXMLWellFormed(ctx context.Context) error {
	resp, err := s.fetch(ctx, s.exp.KnownIP, string(models.FormatXML), http.StatusOK)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(resp.Body, "<?xml") {
		return mismatch("xml body lacks a declaration")
	}
	if _, err := codec.Decode(models.FormatXML, []byte(resp.Body)); err != nil {
		return mismatch("%v", err)
	}
	return nil
}

func (s *Suite) checkXMLElementOrder(ctx context.Context) error {
	resp, err := s.fetch(ctx, s.exp.KnownIP, string(models.FormatXML), http.StatusOK)
	if err != nil {
		return err
	}
	root, children, err := codec.XMLElementNames([]byte(resp.Body))
	if err != nil {
		return mismatch("%v", err)
	}
	if root != "Response" {
		return mismatch("xml root <%s>, want <Response>", root)
	}
	if !slices.Equal(children, models.XMLElements) {
		return mismatch("xml elements %v, want %v", children, models.XMLElements)
	}
	return nil
}

func (s *Suite) checkXMLLiteral(ctx context.Context) error {
	resp, err := s.fetch(ctx, s.exp.KnownIP, string(models.FormatXML), http.StatusOK)
	if err != nil {
		return err
	}
	if resp.Body != s.exp.XMLLiteral {
		return mismatch("xml body %q, want %q", resp.Body, s.exp.XMLLiteral)
	}
	return nil
}

func (s *Suite) checkCSVFieldCount(ctx context.Context) error {
	resp, err := s.fetch(ctx, s.exp.KnownIP, string(models.FormatCSV), http.StatusOK)
	if err != nil {
		return err
	}
	fields, err := codec.SplitCSV([]byte(resp.Body))
	if err != nil {
		return mismatch("%v", err)
	}
	if len(fields) != models.RecordFieldCount {
		return mismatch("csv has %d fields, want %d", len(fields), models.RecordFieldCount)
	}
	return nil
}

func (s *Suite) checkCSVLiteral(ctx context.Context) error {
	resp, err := s.fetch(ctx, s.exp.KnownIP, string(models.FormatCSV), http.StatusOK)
	if err != nil {
		return err
	}
	if resp.Body != s.exp.CSVLiteral {
		return mismatch("csv body %q, want %q", resp.Body, s.exp.CSVLiteral)
	}
	return nil
}

func (s *Suite) checkUnsupportedFormat(ctx context.Context) error {
	_, err := s.fetch(ctx, s.exp.KnownIP, s.exp.UnsupportedFormat, http.StatusNotFound)
	return err
}

func (s *Suite) checkEmptyFormat(ctx context.Context) error {
	_, err := s.fetch(ctx, s.exp.KnownIP, "", http.StatusNotFound)
	return err
}

func (s *Suite) checkInvalidIP(ctx context.Context) error {
	_, err := s.fetch(ctx, s.exp.InvalidIP, string(models.FormatJSON), http.StatusNotFound)
	return err
}

func (s *Suite) checkEmptyIPIsCaller(ctx context.Context) error {
	myIP, err := s.echo.MyIP(ctx)
	if err != nil {
		return fmt.Errorf("failed to determine caller IP: %w", err)
	}

	resp, err := s.fetch(ctx, "", string(models.FormatJSON), http.StatusOK)
	if err != nil {
		return err
	}
	rec, err := codec.Decode(models.FormatJSON, []byte(resp.Body))
	if err != nil {
		return mismatch("%v", err)
	}
	if rec.IP != myIP {
		return mismatch("record ip %s, caller is %s", rec.IP, myIP)
	}
	return nil
}

func (s *Suite) checkFallbackPage(ctx context.Context) error {
	resp, err := s.fetch(ctx, "", "", http.StatusOK)
	if err != nil {
		return err
	}
	if !strings.Contains(resp.Body, s.exp.FallbackMarker) {
		return mismatch("fallback page lacks %q", s.exp.FallbackMarker)
	}
	return nil
}

func (s *Suite) checkKnownHostname(ctx context.Context) error {
	resp, err := s.fetch(ctx, s.exp.KnownHostname, string(models.FormatJSON), http.StatusOK)
	if err != nil {
		return err
	}
	rec, err := codec.Decode(models.FormatJSON, []byte(resp.Body))
	if err != nil {
		return mismatch("%v", err)
	}
	if rec.IP != s.exp.KnownHostnameIP {
		return mismatch("%s resolved to %s, want %s", s.exp.KnownHostname, rec.IP, s.exp.KnownHostnameIP)
	}
	return nil
}

func (s *Suite) checkUnknownHostname(ctx context.Context) error {
	_, err := s.fetch(ctx, s.exp.UnknownHostname, string(models.FormatJSON), http.StatusNotFound)
	return err
}
