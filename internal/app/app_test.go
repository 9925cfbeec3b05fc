package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/emariqueo1/clasificador-salcobrand/internal/classify"
	"github.com/emariqueo1/clasificador-salcobrand/internal/config"
	"github.com/emariqueo1/clasificador-salcobrand/internal/domain"
	"github.com/emariqueo1/clasificador-salcobrand/internal/httpx"
)

func init() {
	color.NoColor = true
}

// isolateEnv points config at a missing file and a temp database and
// removes every other config variable for the rest of the test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL", "LLM_MODEL", "LLM_MAX_TOKENS",
		"LLM_WEB_SEARCH_MAX_USES", "LLM_TIMEOUT_SECONDS", "PORT", "LISTEN_ADDR",
		"EXTERNAL_HTTP_TIMEOUT_SECONDS", "CORS_ORIGINS", "SLACK_BOT_TOKEN",
		"SLACK_CHANNEL_ID", "DIGEST_SCHEDULE", "TIMEZONE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "cli.db"))
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	want := map[string]bool{"serve": false, "classify": false, "list": false, "clear": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("subcommand %q not registered", name)
		}
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"clear"})
	root.SetOut(&bytes.Buffer{})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected confirmation error, got %v", err)
	}
}

func TestClassifyRequiresAPIKey(t *testing.T) {
	isolateEnv(t)

	root := NewRootCmd()
	root.SetArgs([]string{"classify", "Desodorante Rexona Roll-On"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "anthropic_api_key") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestListAndClearAgainstEmptyStore(t *testing.T) {
	isolateEnv(t)

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"list"})
	if err := root.Execute(); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "No classifications stored.") {
		t.Fatalf("unexpected list output %q", out.String())
	}

	out.Reset()
	root = NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"clear", "--yes"})
	if err := root.Execute(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !strings.Contains(out.String(), "All classifications deleted.") {
		t.Fatalf("unexpected clear output %q", out.String())
	}
}

func TestPrintResponse(t *testing.T) {
	var out bytes.Buffer
	printResponse(&out, classify.Response{
		ID:           7,
		Product:      "Colonia Inglesa 250ml",
		Manufacturer: "Coty",
		Result: domain.Result{
			CategoryCode:          domain.CategoryFlammable,
			PackagingType:         "frasco vidrio",
			HasSecondaryPackaging: domain.SecondaryYes,
			Reasoning:             "Perfume con alcohol",
			ShrinkageRisk:         domain.RiskHigh,
		},
	})
	got := out.String()
	for _, want := range []string{"#7 Colonia Inglesa 250ml (Coty)", "InFla (Flammable/Aerosol)", "Riesgo de merma: High"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Fuente:") {
		t.Fatalf("empty source note must be omitted:\n%s", got)
	}
}

func TestRenderRecords(t *testing.T) {
	var out bytes.Buffer
	renderRecords(&out, []domain.ClassificationRecord{{
		ID:           3,
		Product:      "Jabón Dove",
		Manufacturer: domain.NoManufacturer,
		Result: domain.Result{
			CategoryCode:          domain.CategorySmallRigid,
			HasSecondaryPackaging: domain.SecondaryNo,
			ShrinkageRisk:         domain.RiskMedium,
		},
		ClassifiedAt: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC),
	}})
	got := out.String()
	for _, want := range []string{"PRODUCTO", "Jabón Dove", "CosPe", "N/A", "Medium"} {
		if !strings.Contains(got, want) {
			t.Fatalf("table missing %q:\n%s", want, got)
		}
	}
}

type recordingTransport struct {
	hosts []string
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.hosts = append(r.hosts, req.URL.Host)
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`)),
		Request:    req,
	}, nil
}

func TestNotifierUsesSharedHTTPClient(t *testing.T) {
	client := httpx.ExternalHTTPClient()
	original := client.Transport
	transport := &recordingTransport{}
	client.Transport = transport
	t.Cleanup(func() { client.Transport = original })

	n := newNotifier(config.Config{SlackBotToken: "xoxb-test", SlackChannelID: "C123"})
	if err := n.PostText(context.Background(), "hola"); err != nil {
		t.Fatalf("PostText: %v", err)
	}
	if len(transport.hosts) != 1 || transport.hosts[0] != "slack.com" {
		t.Fatalf("expected one request through the shared client, got %q", transport.hosts)
	}
}
