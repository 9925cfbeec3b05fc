package slackbot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/emariqueo1/clasificador-salcobrand/internal/domain"
)

func sampleRecord() domain.ClassificationRecord {
	return domain.ClassificationRecord{
		ID:           7,
		Product:      "Perfume Chanel No.5",
		Manufacturer: "Chanel",
		Result: domain.Result{
			CategoryCode:          domain.CategoryFlammable,
			PackagingType:         "frasco vidrio con atomizador",
			HasSecondaryPackaging: domain.SecondaryYes,
			Reasoning:             "perfume, siempre inflamable",
			ShrinkageRisk:         domain.RiskHigh,
		},
	}
}

func TestFormatClassificationMessage(t *testing.T) {
	got := FormatClassificationMessage(sampleRecord())
	for _, want := range []string{
		"*Perfume Chanel No.5* (Chanel) → *InFla* Flammable/Aerosol",
		"Envase secundario: Yes",
		"Riesgo de merma: High",
		"> perfume, siempre inflamable",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in message:\n%s", want, got)
		}
	}

	rec := sampleRecord()
	rec.Reasoning = " "
	if strings.Contains(FormatClassificationMessage(rec), ">") {
		t.Fatal("blank reasoning must not render a quote line")
	}
}

func TestNotifyClassificationPostsToChannel(t *testing.T) {
	posted := make(chan [2]string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat.postMessage") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		posted <- [2]string{r.FormValue("channel"), r.FormValue("text")}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	}))
	defer srv.Close()

	n := NewNotifier("xoxb-test", "C123", slack.OptionAPIURL(srv.URL+"/"))
	if err := n.NotifyClassification(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("NotifyClassification error: %v", err)
	}
	got := <-posted
	if got[0] != "C123" {
		t.Fatalf("channel = %q, want C123", got[0])
	}
	if !strings.Contains(got[1], "InFla") {
		t.Fatalf("unexpected text: %q", got[1])
	}
}

func TestPostTextSurfacesSlackError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	n := NewNotifier("xoxb-test", "CMISSING", slack.OptionAPIURL(srv.URL+"/"))
	err := n.PostText(context.Background(), "hola")
	if err == nil {
		t.Fatal("expected error for ok=false response")
	}
	if !strings.Contains(err.Error(), "channel_not_found") || !strings.Contains(err.Error(), "CMISSING") {
		t.Fatalf("unexpected error: %v", err)
	}
}
