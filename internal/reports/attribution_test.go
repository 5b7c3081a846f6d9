package reports

import (
	"testing"

	"github.com/radiusdt/shop-reports/internal/models"
)

func TestResolveAttributionDefaults(t *testing.T) {
	o := &models.Order{ID: "o1"}

	a := ResolveAttribution(o)
	if a.Source != "direct" {
		t.Errorf("expected source 'direct', got %q", a.Source)
	}
	if a.Medium != "none" {
		t.Errorf("expected medium 'none', got %q", a.Medium)
	}
	if a.Campaign != "" {
		t.Errorf("expected empty campaign, got %q", a.Campaign)
	}
}

func TestResolveAttributionFromMetadata(t *testing.T) {
	o := &models.Order{
		ID: "o1",
		Metadata: map[string]string{
			models.MetaUTMSource:   "google",
			models.MetaUTMMedium:   "cpc",
			models.MetaUTMCampaign: "spring_sale",
		},
	}

	a := ResolveAttribution(o)
	if a.Source != "google" || a.Medium != "cpc" || a.Campaign != "spring_sale" {
		t.Errorf("unexpected attribution %+v", a)
	}
}

func TestResolveAttributionPartialMetadata(t *testing.T) {
	o := &models.Order{
		ID: "o1",
		Metadata: map[string]string{
			models.MetaUTMSource: "newsletter",
		},
	}

	a := ResolveAttribution(o)
	if a.Source != "newsletter" {
		t.Errorf("expected source 'newsletter', got %q", a.Source)
	}
	if a.Medium != "none" {
		t.Errorf("expected default medium for missing key, got %q", a.Medium)
	}
	if a.Campaign != "" {
		t.Errorf("expected empty campaign, got %q", a.Campaign)
	}
}
