package lis

import (
	"strconv"
	"strings"
)

// Wire sentinels of the analyzer protocol. Every response is a single
// pipe-joined text line, never JSON.
const (
	StatusOKLogin      = "OK_LOGIN"
	StatusQueryOK      = "QUERY_OK"
	StatusNotFound     = "NOT_FOUND"
	StatusUploaded     = "UPLOADED"
	StatusInvalidLogin = "INVALID_LOGIN"
	StatusExpiredToken = "EXPIRED_TOKEN"
)

// TestResult is one code=value pair from a results upload. A token
// without '=' decodes as Malformed and always flags NOT_FOUND.
type TestResult struct {
	Code      string
	Value     string
	Malformed bool
}

// ResultUpload is the decoded form of
// "SampleId|TestCode1=Result1|TestCode2=Result2|...". It is never
// persisted; only the per-test status flags go back to the analyzer.
type ResultUpload struct {
	SampleID string
	Results  []TestResult
}

// EncodeLoginResult renders "OK_LOGIN|<token>" on success, else the
// bare INVALID_LOGIN sentinel.
func EncodeLoginResult(ok bool, token string) string {
	if !ok {
		return StatusInvalidLogin
	}
	return StatusOKLogin + "|" + token
}

// EncodePendingTests renders the ordered tests of a sample as
// "QUERY_OK|<n>|<patient_id>|<patient_name>|<gender>|<dob>|<test1>|...".
func EncodePendingTests(s Sample) string {
	parts := []string{
		StatusQueryOK,
		strconv.Itoa(len(s.Tests)),
		s.PatientID,
		s.PatientName,
		s.PatientGender,
		s.PatientDOB,
	}
	parts = append(parts, s.Tests...)
	return strings.Join(parts, "|")
}

// DecodeResultsUpload splits the raw upload path data. The second return
// is false when there are fewer than two pipe-separated parts, which the
// caller answers with NOT_FOUND.
func DecodeResultsUpload(raw string) (ResultUpload, bool) {
	parts := strings.Split(raw, "|")
	if len(parts) < 2 {
		return ResultUpload{}, false
	}

	upload := ResultUpload{SampleID: parts[0]}
	for _, token := range parts[1:] {
		if !strings.Contains(token, "=") {
			upload.Results = append(upload.Results, TestResult{Malformed: true})
			continue
		}
		pair := strings.SplitN(token, "=", 2)
		upload.Results = append(upload.Results, TestResult{
			Code:  pair[0],
			Value: pair[1],
		})
	}
	return upload, true
}

// UploadStatuses flags each submitted result in submission order:
// UPLOADED when the code is among the sample's ordered tests, NOT_FOUND
// otherwise. A stray code never rejects the whole upload.
func UploadStatuses(sample Sample, results []TestResult) []string {
	flags := make([]string, len(results))
	for i, r := range results {
		if !r.Malformed && sample.HasTest(r.Code) {
			flags[i] = StatusUploaded
		} else {
			flags[i] = StatusNotFound
		}
	}
	return flags
}

// EncodeUploadStatus joins the per-test flags into the wire line.
func EncodeUploadStatus(flags []string) string {
	return strings.Join(flags, "|")
}

// EncodeTestList renders the catalog as
// "QUERY_OK|<n>|<code1>\t<name1>|<code2>\t<name2>|...", or NOT_FOUND for
// an empty catalog.
func EncodeTestList(tests []TestDefinition) string {
	if len(tests) == 0 {
		return StatusNotFound
	}

	parts := []string{StatusQueryOK, strconv.Itoa(len(tests))}
	for _, t := range tests {
		parts = append(parts, t.Code+"\t"+t.Name)
	}
	return strings.Join(parts, "|")
}
