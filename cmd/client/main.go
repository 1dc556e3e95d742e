package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/purelab/lis-gateway/internal/client"
	"github.com/purelab/lis-gateway/internal/hl7"
	"github.com/purelab/lis-gateway/internal/lis"
)

const sampleMessage = "MSH|^~\\&|SENDING_APP|SENDING_FAC|RECEIVING_APP|RECEIVING_FAC|20250101120000||ADT^A01|MSG00001|P|2.5\r" +
	"EVN|A01|20250101120000\r" +
	"PID|1||12345^^^HOSP^MR||Doe^John||19800115|M\r" +
	"PV1|1|I|ICU^101^A"

func main() {
	hl7Base := flag.String("hl7", "http://localhost:5000", "HL7 API base URL")
	lisBase := flag.String("lis", "http://localhost:8000", "LIS API base URL")
	username := flag.String("user", "wsadmin", "analyzer username")
	password := flag.String("pass", "password", "analyzer password")
	sampleID := flag.String("sample", "S001", "sample to query and upload against")
	mllpAddr := flag.String("mllp", "", "optional MLLP target (host:port) to send the sample message to")
	clear := flag.Bool("clear", false, "clear the message store at the end")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, *hl7Base, *lisBase, *username, *password, *sampleID, *mllpAddr, *clear); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, hl7Base, lisBase, username, password, sampleID, mllpAddr string, clear bool) error {
	hl7Client := client.NewHL7Client(hl7Base)

	section("Health check")
	status, err := hl7Client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Println("server status:", status)

	section("Send HL7 message")
	code, sent, err := hl7Client.SendMessage(ctx, sampleMessage)
	if err != nil {
		return err
	}
	fmt.Printf("status=%d type=%s segments=%d\n", code, sent.MessageType, sent.SegmentCount)

	section("Validate HL7 message")
	validation, err := hl7Client.ValidateMessage(ctx, sampleMessage)
	if err != nil {
		return err
	}
	fmt.Printf("valid=%t has_msh=%t segments=%v\n", validation.Valid, validation.HasMSH, validation.Segments)

	section("List stored messages")
	list, err := hl7Client.Messages(ctx)
	if err != nil {
		return err
	}
	fmt.Println("stored messages:", list.Count)

	section("Send empty message (expected 400)")
	code, _, err = hl7Client.SendMessage(ctx, "")
	if err != nil {
		return err
	}
	fmt.Println("status:", code)

	if err := runAnalyzerSession(ctx, lisBase, username, password, sampleID); err != nil {
		return err
	}

	if mllpAddr != "" {
		section("Send HL7 message over MLLP")
		host, portText, err := net.SplitHostPort(mllpAddr)
		if err != nil {
			return fmt.Errorf("bad MLLP address %q: %w", mllpAddr, err)
		}
		port, err := strconv.Atoi(portText)
		if err != nil {
			return fmt.Errorf("bad MLLP port %q: %w", portText, err)
		}
		if err := hl7.NewMLLPClient(host, port).SendMessage([]byte(sampleMessage)); err != nil {
			return err
		}
		fmt.Println("MLLP message acknowledged")
	}

	if clear {
		section("Clear message store")
		cleared, err := hl7Client.ClearMessages(ctx)
		if err != nil {
			return err
		}
		fmt.Println("cleared:", cleared)
	}

	return nil
}

// runAnalyzerSession walks the analyzer protocol end to end: login, test
// download, results upload and test list.
func runAnalyzerSession(ctx context.Context, lisBase, username, password, sampleID string) error {
	rest := client.NewRESTClient(lisBase)

	section("Analyzer login")
	params := url.Values{}
	params.Set("userName", username)
	params.Set("password", password)
	resp, err := rest.Get(ctx, "/lis_apis/applogin", params, nil)
	if err != nil {
		return err
	}

	body := resp.Text()
	if !strings.HasPrefix(body, lis.StatusOKLogin+"|") {
		return fmt.Errorf("login rejected: %s", body)
	}
	token := strings.TrimPrefix(body, lis.StatusOKLogin+"|")
	headers := map[string]string{"token": token}

	section("Download pending tests")
	resp, err = rest.Get(ctx, "/lis_apis/tests_lis_download/"+sampleID, nil, headers)
	if err != nil {
		return err
	}
	tests := pendingTestCodes(resp.Text())

	section("Upload results")
	uploadData := sampleID
	for i, code := range tests {
		uploadData += fmt.Sprintf("|%s=%d.%d", code, 4+i, i)
	}
	if len(tests) == 0 {
		uploadData += "|CBC=4.9"
	}
	resp, err = rest.Post(ctx, "/lis_apis/results_lis_upload/"+url.PathEscape(uploadData), nil, "", headers)
	if err != nil {
		return err
	}
	fmt.Println("upload flags:", resp.Text())

	section("Download test list")
	_, err = rest.Get(ctx, "/lis_apis/get_tests_list", nil, headers)
	return err
}

// pendingTestCodes pulls the trailing test codes out of a
// "QUERY_OK|n|...|test1|test2" line.
func pendingTestCodes(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) < 7 || parts[0] != lis.StatusQueryOK {
		return nil
	}
	return parts[6:]
}

func section(title string) {
	fmt.Printf("\n=== %s ===\n", title)
}
