package bridge

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/purelab/lis-gateway/internal/hl7"
	"github.com/purelab/lis-gateway/internal/lis"
	"github.com/purelab/lis-gateway/internal/store"
)

// ResultForwarder translates accepted analyzer results into ORU^R01
// messages and hands them to the HL7 message store. Everything happens
// synchronously inside the upload request; there is no queue and no
// retry.
type ResultForwarder struct {
	store     *store.MessageStore
	directory *lis.Directory
	enabled   bool
}

func NewResultForwarder(st *store.MessageStore, directory *lis.Directory, enabled bool) *ResultForwarder {
	return &ResultForwarder{
		store:     st,
		directory: directory,
		enabled:   enabled,
	}
}

// Forward builds one ORU^R01 from the results whose flag is UPLOADED and
// appends it. Uploads with no accepted result produce no message.
func (f *ResultForwarder) Forward(sample lis.Sample, results []lis.TestResult, flags []string) {
	if !f.enabled {
		return
	}

	var accepted []lis.TestResult
	for i, r := range results {
		if i < len(flags) && flags[i] == lis.StatusUploaded {
			accepted = append(accepted, r)
		}
	}
	if len(accepted) == 0 {
		return
	}

	msg := f.buildORU(sample, accepted)
	raw := msg.Encode()

	messageType, _ := msg.MessageType()
	rec := store.NewMessageRecord(messageType, raw, len(msg.Segments))
	f.store.Append(rec)

	slog.Info("Analyzer results forwarded as HL7",
		"id", rec.ID,
		"sampleID", sample.ID,
		"messageType", messageType,
		"observations", len(accepted))
}

func (f *ResultForwarder) buildORU(sample lis.Sample, results []lis.TestResult) *hl7.Message {
	timestamp := time.Now().Format(hl7.TimestampLayout)
	controlID := uuid.New().String()

	msg := &hl7.Message{}
	msg.AddSegment("MSH",
		"^~\\&", "LIS_GATEWAY", "PURELAB", "LIS", "PURELAB",
		timestamp, "", "ORU^R01", controlID, "P", "2.5")
	msg.AddSegment("PID",
		"1", "", sample.PatientID, "", hl7Name(sample.PatientName), "",
		strings.ReplaceAll(sample.PatientDOB, "-", ""), sample.PatientGender)
	msg.AddSegment("OBR", "1", "", sample.ID)

	for i, r := range results {
		code := r.Code
		if name, ok := f.directory.TestName(r.Code); ok {
			code = r.Code + hl7.ComponentSeparator + name
		}
		msg.AddSegment("OBX", strconv.Itoa(i+1), "ST", code, "", r.Value)
	}
	return msg
}

// hl7Name renders "John Doe" as "Doe^John"; anything else passes through.
func hl7Name(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 2 {
		return parts[1] + hl7.ComponentSeparator + parts[0]
	}
	return name
}
